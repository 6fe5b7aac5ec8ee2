// Package background contains tasks that run independently of a single
// command, such as keeping the dashboard current in watch mode.
package background

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/user/blogdesk-go/dashboard"
)

// Refresher loads a fresh dashboard snapshot. dashboard.Loader implements it.
type Refresher interface {
	Load(ctx context.Context) (*dashboard.Snapshot, error)
}

// minRefreshInterval keeps a misconfigured interval from hammering the server.
var minRefreshInterval = time.Second

// StartDashboardRefresher loads the dashboard once right away and then on every
// tick of interval, handing each result to onUpdate. Every load recomputes the
// aggregate from scratch.
//
// At most one load waits behind the running one; further ticks are skipped.
// Closing stopChan cancels the running load and stops the refresher; the
// returned channel is closed once every goroutine has exited.
// ELI5: a kitchen timer rings every `interval`; each ring sends one cook to
// fetch the latest numbers. If a cook is already out and another is waiting
// at the door, the ring is ignored.
func StartDashboardRefresher(loader Refresher, interval time.Duration, stopChan <-chan struct{}, onUpdate func(*dashboard.Snapshot, error)) <-chan struct{} {
	if interval < minRefreshInterval {
		interval = minRefreshInterval
	}
	log.Printf("Dashboard refresher starting (every %s)...", interval)

	ctx, cancel := context.WithCancel(context.Background())
	// Holds at most one pending load request.
	ticks := make(chan struct{}, 1)
	done := make(chan struct{})

	// wg tracks the loader worker so shutdown can wait for it.
	var wg sync.WaitGroup

	// --- Loader worker ---
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range ticks {
			snap, err := loader.Load(ctx)
			if ctx.Err() != nil {
				// Stopped mid-load; nobody is waiting for this result.
				return
			}
			if err != nil {
				log.Printf("Dashboard refresher: load failed: %v", err)
			}
			onUpdate(snap, err)
		}
	}()

	request := func() {
		select {
		case ticks <- struct{}{}:
		default:
			log.Println("Dashboard refresher: previous load still running, skipping tick")
		}
	}

	// --- Orchestrator ---
	go func() {
		defer close(done)
		defer log.Println("Dashboard refresher stopped.")

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		request()
		for {
			select {
			case <-ticker.C:
				request()
			case <-stopChan:
				log.Println("Dashboard refresher: stop signal received, shutting down...")
				cancel()
				close(ticks)
				wg.Wait()
				return
			}
		}
	}()

	return done
}

package background

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/user/blogdesk-go/blogs"
	"github.com/user/blogdesk-go/dashboard"
)

type fakeLoader struct {
	calls atomic.Int32
	fail  atomic.Bool
}

func (f *fakeLoader) Load(ctx context.Context) (*dashboard.Snapshot, error) {
	n := int(f.calls.Add(1))
	if f.fail.Load() {
		return nil, errors.New("server down")
	}
	posts := make([]blogs.Post, n)
	return &dashboard.Snapshot{Posts: posts, Aggregate: dashboard.Compute(posts)}, nil
}

type blockingLoader struct {
	started chan struct{}
	once    sync.Once
}

func (b *blockingLoader) Load(ctx context.Context) (*dashboard.Snapshot, error) {
	b.once.Do(func() { close(b.started) })
	<-ctx.Done()
	return nil, ctx.Err()
}

func withInterval(t *testing.T, d time.Duration) {
	t.Helper()
	old := minRefreshInterval
	minRefreshInterval = d
	t.Cleanup(func() { minRefreshInterval = old })
}

func TestRefresherRecomputesOnEveryTick(t *testing.T) {
	withInterval(t, time.Millisecond)
	loader := &fakeLoader{}
	stop := make(chan struct{})

	var mu sync.Mutex
	var totals []int
	done := StartDashboardRefresher(loader, 5*time.Millisecond, stop, func(s *dashboard.Snapshot, err error) {
		if err != nil {
			t.Errorf("unexpected error: %v", err)
			return
		}
		mu.Lock()
		totals = append(totals, s.Aggregate.TotalPosts)
		mu.Unlock()
	})

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(totals)
		mu.Unlock()
		if n >= 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("only %d updates", n)
		}
		time.Sleep(time.Millisecond)
	}
	close(stop)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("refresher did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(totals); i++ {
		if totals[i] <= totals[i-1] {
			t.Fatalf("updates not fresh: %v", totals)
		}
	}
	after := loader.calls.Load()
	time.Sleep(20 * time.Millisecond)
	if loader.calls.Load() != after {
		t.Fatal("loads continued after stop")
	}
}

func TestRefresherReportsErrors(t *testing.T) {
	withInterval(t, time.Millisecond)
	loader := &fakeLoader{}
	loader.fail.Store(true)
	stop := make(chan struct{})
	errs := make(chan error, 16)

	done := StartDashboardRefresher(loader, time.Hour, stop, func(s *dashboard.Snapshot, err error) {
		errs <- err
	})
	select {
	case err := <-errs:
		if err == nil {
			t.Fatal("expected the load error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no initial load")
	}
	close(stop)
	<-done
}

func TestRefresherStopCancelsRunningLoad(t *testing.T) {
	withInterval(t, time.Millisecond)
	loader := &blockingLoader{started: make(chan struct{})}
	stop := make(chan struct{})
	var updates atomic.Int32

	done := StartDashboardRefresher(loader, time.Hour, stop, func(*dashboard.Snapshot, error) {
		updates.Add(1)
	})
	<-loader.started
	close(stop)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not cancel the running load")
	}
	if updates.Load() != 0 {
		t.Fatal("a cancelled load was reported")
	}
}

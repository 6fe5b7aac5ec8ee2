// This is the main entry point of the blogdesk command line client.
// It loads configuration, opens the session storage, wires the API client,
// Session Store, services and the Engagement Controller together, and hands
// control to the command the user asked for.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	// Third-party libraries
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	// Internal application packages
	"github.com/user/blogdesk-go/apiclient"
	"github.com/user/blogdesk-go/auth"
	"github.com/user/blogdesk-go/blogs"
	"github.com/user/blogdesk-go/comments"
	"github.com/user/blogdesk-go/config"
	"github.com/user/blogdesk-go/dashboard"
	"github.com/user/blogdesk-go/engagement"
	"github.com/user/blogdesk-go/notify"
	"github.com/user/blogdesk-go/storage"
	"github.com/user/blogdesk-go/users"
)

// application holds everything a command needs. It is built once per run in
// the Before hook and torn down in After.
type application struct {
	cfg      *config.AppConfig
	storage  storage.Store
	api      *apiclient.Client
	bus      *notify.Bus
	sessions *auth.Store
	posts    *blogs.Service
	comments *comments.Service
	users    *users.Service
	ctrl     *engagement.Controller
	loader   *dashboard.Loader
	console  *console

	printerID   string
	printerDone chan struct{}
}

func main() {
	// Load .env file
	// In development this sets API_BASE_URL and friends without touching the shell.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: error loading .env file: %v", err)
	}
	log.SetFlags(0)
	log.SetPrefix("blogdesk: ")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &application{console: newConsole(os.Stdin, os.Stdout, os.Stderr)}
	if err := a.cliApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setup runs before every command.
func (a *application) setup(c *cli.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if c.Bool("verbose") {
		cfg.API.LogHTTP = true
	} else if !cfg.API.LogHTTP {
		log.SetOutput(io.Discard)
	}
	a.cfg = cfg

	st, err := storage.Open(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open session storage: %w", err)
	}
	a.storage = st

	a.bus = notify.NewBus()
	a.startPrinter()

	a.api = apiclient.New(cfg.API)
	a.sessions = auth.NewStore(st, a.api, a.bus)
	a.sessions.Initialize(c.Context)

	a.posts = blogs.NewService(a.api)
	a.comments = comments.NewService(a.api)
	a.users = users.NewService(a.api, a.sessions)

	var confirmer engagement.Confirmer = a.console
	if c.Bool("yes") {
		confirmer = engagement.AlwaysConfirm
	}
	a.ctrl = engagement.New(engagement.Deps{
		Sessions:  a.sessions,
		Posts:     a.posts,
		Comments:  a.comments,
		Notifier:  a.bus,
		Confirmer: confirmer,
		Navigator: a.console,
	})
	a.loader = dashboard.NewLoader(a.api, a.posts, a.sessions, cfg.Dashboard.Window)
	return nil
}

// teardown runs after every command, even a failed one.
func (a *application) teardown(*cli.Context) error {
	a.stopPrinter()
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			log.Printf("closing session storage: %v", err)
		}
	}
	return nil
}

// startPrinter subscribes to the notification bus and writes every
// notification to stderr until stopPrinter is called.
func (a *application) startPrinter() {
	id, ch := a.bus.Subscribe()
	a.printerID = id
	a.printerDone = make(chan struct{})
	go func() {
		defer close(a.printerDone)
		for n := range ch {
			a.console.notification(n)
		}
	}()
}

// stopPrinter unsubscribes the printer and waits until it has flushed.
func (a *application) stopPrinter() {
	if a.bus == nil || a.printerDone == nil {
		return
	}
	a.bus.Unsubscribe(a.printerID)
	<-a.printerDone
}

package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/user/blogdesk-go/apiclient"
	"github.com/user/blogdesk-go/apperror"
	"github.com/user/blogdesk-go/blogs"
	"github.com/user/blogdesk-go/engagement"
	"github.com/user/blogdesk-go/users"
)

// ErrRefreshAfterDelete marks a DeletePost error where the post was deleted
// but loading the dashboard again failed.
var ErrRefreshAfterDelete = errors.New("post deleted, but refreshing the dashboard failed")

// Sessions is the part of the Session Store the loader reads.
type Sessions interface {
	Token() string
	HandleUnauthorized(err error) bool
}

// PostLister fetches the posts owned by a token.
type PostLister interface {
	MyPosts(ctx context.Context, token string) ([]blogs.Post, error)
}

// PostDeleter deletes a post from a list after confirmation.
// engagement.Controller implements it.
type PostDeleter interface {
	DeletePost(ctx context.Context, list *engagement.PostList, postID string) (engagement.Result, error)
}

// Snapshot is one load of the dashboard.
type Snapshot struct {
	Posts     []blogs.Post
	Aggregate Aggregate
	// Server holds the server's own totals when GET /dashboard/analytics
	// answered; nil otherwise.
	Server   *users.Stats
	LoadedAt time.Time
}

// Loader fetches the owned posts and computes the dashboard from them.
type Loader struct {
	api      apiclient.Doer
	posts    PostLister
	sessions Sessions
	window   int
}

// NewLoader creates a Loader. window sizes the recent and popular lists.
func NewLoader(api apiclient.Doer, posts PostLister, sessions Sessions, window int) *Loader {
	return &Loader{api: api, posts: posts, sessions: sessions, window: window}
}

// Load fetches GET /blogs/my-blogs and, at the same time, the optional
// GET /dashboard/analytics. Only the first is required; a failure of the
// analytics call is logged and otherwise ignored. An Unauthorized answer ends
// the session.
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	token := l.sessions.Token()
	if token == "" {
		return nil, apperror.NewAuthRequiredError("Please login to view your dashboard")
	}

	var (
		posts  []blogs.Post
		server *users.Stats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		posts, err = l.posts.MyPosts(gctx, token)
		return err
	})
	g.Go(func() error {
		var out struct {
			Overview users.Stats `json:"overview"`
		}
		_, err := l.api.Do(gctx, apiclient.Request{Method: http.MethodGet, Path: "/dashboard/analytics", Token: token}, &out)
		if err != nil {
			log.Printf("dashboard: server analytics unavailable, using computed totals: %v", err)
			return nil
		}
		server = &out.Overview
		return nil
	})
	if err := g.Wait(); err != nil {
		if l.sessions.HandleUnauthorized(err) {
			log.Printf("dashboard: session ended while loading")
		}
		return nil, err
	}

	return &Snapshot{
		Posts:     posts,
		Aggregate: ComputeWindow(posts, l.window),
		Server:    server,
		LoadedAt:  time.Now(),
	}, nil
}

// DeletePost deletes postID through del and, once the server has removed it,
// loads the dashboard again so the aggregate reflects the new list. When the
// deletion did not happen (declined, ignored or stale) the returned snapshot
// is nil. If the reload fails the deletion still stands: res is returned with
// an error wrapping both ErrRefreshAfterDelete and the load error, and list
// keeps the controller's removal.
func (l *Loader) DeletePost(ctx context.Context, del PostDeleter, list *engagement.PostList, postID string) (*Snapshot, engagement.Result, error) {
	res, err := del.DeletePost(ctx, list, postID)
	if err != nil || res.Declined || res.Ignored || res.Stale {
		return nil, res, err
	}
	snap, err := l.Load(ctx)
	if err != nil {
		return nil, res, fmt.Errorf("%w: %w", ErrRefreshAfterDelete, err)
	}
	list.Replace(snap.Posts)
	return snap, res, nil
}

// Package engagement performs the actions a reader takes on a post (liking,
// commenting, deleting) with an optimistic discipline: the rendered state
// changes immediately, the request goes out, and the answer either confirms
// the change with the server's values or rolls it back to exactly what was
// shown before.
//
// Per post, a like is either Idle or Pending with the optimistic and previous
// snapshots recorded. At most one like and one comment submission per post are
// in flight; re-entrant calls are ignored. Different posts never wait on each
// other.
//
// Results that arrive after their view was closed, or after the session
// changed, are dropped instead of applied.
package engagement

import (
	"context"
	"sync"

	"github.com/user/blogdesk-go/blogs"
	"github.com/user/blogdesk-go/notify"
)

// SessionReader is the read side of the Session Store plus the Unauthorized
// cascade. The controller never changes the session any other way.
type SessionReader interface {
	Token() string
	UserID() string
	Generation() uint64
	HandleUnauthorized(err error) bool
}

// PostService is the part of blogs.Service the controller calls.
type PostService interface {
	Get(ctx context.Context, token, id string) (*blogs.Post, error)
	Delete(ctx context.Context, token, id string) error
	ToggleLike(ctx context.Context, token, id string) (*blogs.LikeResult, error)
}

// CommentService is the part of comments.Service the controller calls.
type CommentService interface {
	Add(ctx context.Context, token, postID, body string) (*blogs.Comment, error)
	Delete(ctx context.Context, token, commentID string) error
}

// Confirmer asks the user a blocking yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// AlwaysConfirm answers yes without asking.
var AlwaysConfirm Confirmer = ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })

// Navigator moves the user to the login entry point.
type Navigator interface {
	ToLogin()
}

type noNavigation struct{}

func (noNavigation) ToLogin() {}

// LikeStatus is the per-post like state. The zero value is Idle.
type LikeStatus struct {
	Pending    bool
	Optimistic blogs.LikeState
	Previous   blogs.LikeState
}

// Result describes what an action did when it did not fail.
type Result struct {
	// Ignored means an identical action was already in flight, so nothing was done.
	Ignored bool
	// Declined means the user answered no to the confirmation prompt.
	Declined bool
	// Stale means the answer arrived after the view closed or the session
	// changed, and was not applied.
	Stale bool
	// Like is the like state left in the view by ToggleLike.
	Like blogs.LikeState
}

// Controller runs engagement actions. It is safe for concurrent use.
type Controller struct {
	sessions SessionReader
	posts    PostService
	comments CommentService
	notifier notify.Notifier
	confirm  Confirmer
	nav      Navigator

	mu         sync.Mutex
	likes      map[string]LikeStatus
	submitting map[string]struct{}
	deleting   map[string]struct{}
}

// Deps bundles the controller's collaborators. Notifier, Confirmer and
// Navigator are optional; a missing Confirmer declines every prompt.
type Deps struct {
	Sessions  SessionReader
	Posts     PostService
	Comments  CommentService
	Notifier  notify.Notifier
	Confirmer Confirmer
	Navigator Navigator
}

// New creates a Controller.
func New(d Deps) *Controller {
	c := &Controller{
		sessions:   d.Sessions,
		posts:      d.Posts,
		comments:   d.Comments,
		notifier:   d.Notifier,
		confirm:    d.Confirmer,
		nav:        d.Navigator,
		likes:      make(map[string]LikeStatus),
		submitting: make(map[string]struct{}),
		deleting:   make(map[string]struct{}),
	}
	if c.notifier == nil {
		c.notifier = notify.Discard
	}
	if c.confirm == nil {
		c.confirm = ConfirmFunc(func(context.Context, string) (bool, error) { return false, nil })
	}
	if c.nav == nil {
		c.nav = noNavigation{}
	}
	return c
}

// LikeStatus returns the like state of a post: Idle, or Pending with its snapshots.
func (c *Controller) LikeStatus(postID string) LikeStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.likes[postID]
}

// begin marks key as in flight in set and reports whether it was free.
func (c *Controller) begin(set map[string]struct{}, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := set[key]; busy {
		return false
	}
	set[key] = struct{}{}
	return true
}

func (c *Controller) end(set map[string]struct{}, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(set, key)
}

// fail reports err to the user and runs the Unauthorized cascade.
func (c *Controller) fail(err error, message string) {
	c.notifier.Error(message)
	if c.sessions.HandleUnauthorized(err) {
		c.nav.ToLogin()
	}
}

// requireSession returns the token, or reports and returns an AuthRequired error.
func (c *Controller) requireSession(message string) (string, error) {
	token := c.sessions.Token()
	if token == "" {
		c.notifier.Error(message)
		c.nav.ToLogin()
		return "", errAuthRequired(message)
	}
	return token, nil
}

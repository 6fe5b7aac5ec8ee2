// Package auth provides the Session Store: the single owner of "who is logged
// in" and of the bearer credential every other component presents to the API.
//
// The store has two states, Anonymous and Authenticated. Login and
// registration move it to Authenticated; Logout, or a collaborator reporting
// that the server rejected the credential (HandleUnauthorized), move it back.
// Every transition bumps a generation counter so that work started under one
// session can tell it is no longer relevant once that session is gone.
//
// Only the store reads or writes the token and user keys of durable storage,
// and it always writes or clears them together.
package auth

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/user/blogdesk-go/apiclient"
	"github.com/user/blogdesk-go/apperror"
	"github.com/user/blogdesk-go/notify"
	"github.com/user/blogdesk-go/storage"
)

const (
	msgLoggedOut      = "Logged out successfully"
	msgSessionExpired = "Session expired. Please login again"
)

// Store holds the current session. It is safe for concurrent use; network calls
// never run while the lock is held.
type Store struct {
	storage  storage.Store
	api      apiclient.Doer
	notifier notify.Notifier
	now      func() time.Time

	mu         sync.RWMutex
	session    *Session
	generation uint64
}

// Option customises a Store.
type Option func(*Store)

// WithClock replaces time.Now, used for the token expiry check.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates an Anonymous store. Call Initialize to restore a persisted
// session.
func NewStore(st storage.Store, api apiclient.Doer, notifier notify.Notifier, opts ...Option) *Store {
	if notifier == nil {
		notifier = notify.Discard
	}
	s := &Store{
		storage:  st,
		api:      api,
		notifier: notifier,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize restores the persisted session, if any, without contacting the
// server. Anything unreadable, unparseable or already expired is treated as
// logged out and cleared from storage. It never fails.
func (s *Store) Initialize(ctx context.Context) {
	session, ok := s.restore()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	if ok {
		s.session = session
		return
	}
	s.session = nil
}

func (s *Store) restore() (*Session, bool) {
	token, hasToken, err := s.storage.Get(storage.KeyToken)
	if err != nil {
		log.Printf("auth: reading persisted token: %v", err)
		s.clearStorage()
		return nil, false
	}
	rawUser, hasUser, err := s.storage.Get(storage.KeyUser)
	if err != nil {
		log.Printf("auth: reading persisted user: %v", err)
		s.clearStorage()
		return nil, false
	}
	if !hasToken && !hasUser {
		return nil, false
	}
	if !hasToken || !hasUser || token == "" {
		log.Printf("auth: persisted session is incomplete, clearing it")
		s.clearStorage()
		return nil, false
	}

	var user User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		log.Printf("auth: persisted user is corrupt, clearing session: %v", err)
		s.clearStorage()
		return nil, false
	}
	if tokenExpired(token, s.now()) {
		log.Printf("auth: persisted token for %s has expired, clearing session", user.Email)
		s.clearStorage()
		return nil, false
	}
	return &Session{User: user, Token: token}, true
}

// Login exchanges credentials for a session. On failure the returned error is
// a ValidationError (rejected locally, nothing sent) or an AuthError carrying
// the server's message, and any existing session is left as it was.
func (s *Store) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	return s.authenticate(ctx, "/auth/login", req, "Login failed")
}

// Register creates an account and signs into it. Same contract as Login.
func (s *Store) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	return s.authenticate(ctx, "/auth/register", req, "Registration failed")
}

func (s *Store) authenticate(ctx context.Context, path string, body any, fallback string) (*Session, error) {
	var resp AuthResponse
	_, err := s.api.Do(ctx, apiclient.Request{
		Method:      http.MethodPost,
		Path:        path,
		Body:        body,
		Credentials: true,
	}, &resp)
	if err != nil {
		return nil, apperror.NewAuthError(apperror.UserMessage(err, fallback), err)
	}
	if resp.Token == "" || resp.User.ID == "" {
		return nil, apperror.NewAuthError(fallback, nil)
	}

	session := &Session{User: resp.User, Token: resp.Token}
	if err := s.persist(session); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.session = session
	s.generation++
	s.mu.Unlock()

	log.Printf("auth: signed in as %s", session.User.Email)
	copied := *session
	return &copied, nil
}

// Logout ends the session locally. It never contacts the server and is safe to
// call when already Anonymous.
func (s *Store) Logout() {
	s.clear()
	s.notifier.Success(msgLoggedOut)
}

// HandleUnauthorized tears the session down when err says the server rejected
// the credential, and reports whether it did. Collaborators call it with every
// error they receive from an authenticated request.
func (s *Store) HandleUnauthorized(err error) bool {
	if !apperror.IsUnauthorizedError(err) {
		return false
	}
	if s.clear() {
		log.Printf("auth: credential rejected by server, session cleared")
		s.notifier.Error(msgSessionExpired)
	}
	return true
}

// clear drops the session from memory and storage and reports whether there
// was one.
func (s *Store) clear() bool {
	s.mu.Lock()
	had := s.session != nil
	s.session = nil
	s.generation++
	s.mu.Unlock()

	s.clearStorage()
	return had
}

// UpdateProfile merges an already confirmed server snapshot of the user into
// the session. It does not call the server.
func (s *Store) UpdateProfile(update User) error {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return apperror.NewAuthRequiredError("Please login to update your profile")
	}
	if update.ID != "" && update.ID != s.session.User.ID {
		s.mu.Unlock()
		return apperror.NewValidationError("Profile update belongs to a different user", nil)
	}
	next := &Session{User: s.session.User.merge(update), Token: s.session.Token}
	s.mu.Unlock()

	if err := s.persist(next); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// A logout may have happened while we were writing.
	if s.session == nil || s.session.Token != next.Token {
		return apperror.NewAuthRequiredError("Please login to update your profile")
	}
	s.session = next
	return nil
}

// Current returns a copy of the session and whether one exists.
func (s *Store) Current() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return Session{}, false
	}
	return *s.session, true
}

// Token returns the bearer credential, or "" when Anonymous.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return ""
	}
	return s.session.Token
}

// UserID returns the signed-in user's id, or "" when Anonymous.
func (s *Store) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return ""
	}
	return s.session.User.ID
}

// IsAuthenticated reports whether a session exists.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session != nil
}

// Generation changes on every session transition.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

func (s *Store) persist(session *Session) error {
	rawUser, err := json.Marshal(session.User)
	if err != nil {
		return apperror.NewStorageError("failed to encode user", err)
	}
	if err := s.storage.Put(map[string]string{
		storage.KeyToken: session.Token,
		storage.KeyUser:  string(rawUser),
	}); err != nil {
		return apperror.NewStorageError("failed to save session", err)
	}
	return nil
}

func (s *Store) clearStorage() {
	if err := s.storage.Delete(storage.KeyToken, storage.KeyUser); err != nil {
		log.Printf("auth: clearing persisted session: %v", err)
	}
}

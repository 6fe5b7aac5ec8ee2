// Package apitest runs an in-process fake of the blog API server for tests.
// It implements every endpoint the client calls, keeps its state in memory,
// hashes passwords with bcrypt and issues real HS256 JWTs. Tests can force any
// route to fail with a chosen status, hold requests at a gate to observe
// in-flight behaviour, and count how often each route was hit.
package apitest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"

	"github.com/user/blogdesk-go/apiclient"
	"github.com/user/blogdesk-go/config"
)

// Route names accepted by Fail, Gate and Count.
const (
	RouteLogin         = "POST /auth/login"
	RouteRegister      = "POST /auth/register"
	RouteListPosts     = "GET /blogs"
	RouteMyPosts       = "GET /blogs/my-blogs"
	RouteGetPost       = "GET /blogs/{id}"
	RouteCreatePost    = "POST /blogs"
	RouteUpdatePost    = "PUT /blogs/{id}"
	RouteDeletePost    = "DELETE /blogs/{id}"
	RouteLike          = "POST /blogs/{id}/like"
	RouteAddComment    = "POST /blogs/{id}/comment"
	RouteDeleteComment = "DELETE /comments/{id}"
	RouteUpdateProfile = "PUT /users/profile"
	RouteUserStats     = "GET /users/stats"
	RouteAnalytics     = "GET /dashboard/analytics"
)

type failure struct {
	status  int
	message string
}

// Server is the fake API. The zero value is not usable; call New.
type Server struct {
	srv    *httptest.Server
	secret []byte

	mu       sync.Mutex
	clock    time.Time
	users    map[string]*user
	byEmail  map[string]string
	posts    map[string]*post
	comments map[string]*comment
	likes    map[string]map[string]bool // post id -> user ids
	extra    map[string]int             // likes from sessions the test does not model

	failures      map[string]failure
	gates         map[string]chan struct{}
	counts        map[string]int
	topLevelLikes bool
}

// New starts a Server and registers its shutdown with t.Cleanup.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		secret:   []byte("apitest-secret"),
		clock:    time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		users:    make(map[string]*user),
		byEmail:  make(map[string]string),
		posts:    make(map[string]*post),
		comments: make(map[string]*comment),
		likes:    make(map[string]map[string]bool),
		extra:    make(map[string]int),
		failures: make(map[string]failure),
		gates:    make(map[string]chan struct{}),
		counts:   make(map[string]int),
	}
	s.srv = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.handle(RouteLogin, s.HandleLogin()))
		r.Post("/auth/register", s.handle(RouteRegister, s.HandleRegister()))

		r.Get("/blogs", s.handle(RouteListPosts, s.HandleListPosts()))
		r.Get("/blogs/my-blogs", s.handle(RouteMyPosts, s.requireAuth(s.HandleMyPosts())))
		r.Get("/blogs/{id}", s.handle(RouteGetPost, s.optionalAuth(s.HandleGetPost())))
		r.Post("/blogs", s.handle(RouteCreatePost, s.requireAuth(s.HandleCreatePost())))
		r.Put("/blogs/{id}", s.handle(RouteUpdatePost, s.requireAuth(s.HandleUpdatePost())))
		r.Delete("/blogs/{id}", s.handle(RouteDeletePost, s.requireAuth(s.HandleDeletePost())))
		r.Post("/blogs/{id}/like", s.handle(RouteLike, s.requireAuth(s.HandleToggleLike())))
		r.Post("/blogs/{id}/comment", s.handle(RouteAddComment, s.requireAuth(s.HandleAddComment())))
		r.Delete("/comments/{id}", s.handle(RouteDeleteComment, s.requireAuth(s.HandleDeleteComment())))

		r.Put("/users/profile", s.handle(RouteUpdateProfile, s.requireAuth(s.HandleUpdateProfile())))
		r.Get("/users/stats", s.handle(RouteUserStats, s.requireAuth(s.HandleUserStats())))
		r.Get("/dashboard/analytics", s.handle(RouteAnalytics, s.requireAuth(s.HandleAnalytics())))
	})
	return r
}

// handle counts the request, waits at the route's gate if one is set, and
// answers with the forced failure if one is configured.
func (s *Server) handle(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.counts[route]++
		gate := s.gates[route]
		s.mu.Unlock()

		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}

		s.mu.Lock()
		f, failing := s.failures[route]
		s.mu.Unlock()
		if failing {
			writeError(w, f.status, f.message)
			return
		}
		next(w, r)
	}
}

// Close shuts the server down.
func (s *Server) Close() {
	s.mu.Lock()
	for route, g := range s.gates {
		close(g)
		delete(s.gates, route)
	}
	s.mu.Unlock()
	s.srv.Close()
}

// URL is the API base URL, including the /api prefix.
func (s *Server) URL() string {
	return s.srv.URL + "/api"
}

// Config returns an API configuration pointing at the server.
func (s *Server) Config() *config.APIConfig {
	return &config.APIConfig{BaseURL: s.URL(), Timeout: 5 * time.Second}
}

// Client returns an API client wired to the server.
func (s *Server) Client() *apiclient.Client {
	return apiclient.New(s.Config(), apiclient.WithHTTPClient(s.srv.Client()))
}

// Fail makes every request to route answer with status and message until
// Recover is called.
func (s *Server) Fail(route string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = failure{status: status, message: message}
}

// Recover removes a failure set by Fail.
func (s *Server) Recover(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, route)
}

// Gate holds every request to route until the returned release function is
// called. Release is idempotent.
func (s *Server) Gate(route string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.gates[route] = ch
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.gates[route] == ch {
				delete(s.gates, route)
				close(ch)
			}
			s.mu.Unlock()
		})
	}
}

// Count returns how many requests reached route.
func (s *Server) Count(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[route]
}

// WaitForCount blocks until route has seen n requests or the timeout passes,
// and reports whether the count was reached.
func (s *Server) WaitForCount(route string, n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if s.Count(route) >= n {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return s.Count(route) >= n
}

// UseTopLevelLikeShape makes the like endpoint put isLiked and likesCount
// beside success instead of under data.
func (s *Server) UseTopLevelLikeShape(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topLevelLikes = on
}

// AddUser creates an account directly and returns its id.
func (s *Server) AddUser(name, email, password string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(name, email, "", hash)
}

// AddPost creates a post for authorID directly and returns its id.
func (s *Server) AddPost(authorID string, seed PostSeed) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &post{
		ID:        newID(),
		AuthorID:  authorID,
		Title:     seed.Title,
		Content:   seed.Content,
		Category:  seed.Category,
		Tags:      seed.Tags,
		Status:    seed.Status,
		Views:     seed.Views,
		CreatedAt: seed.CreatedAt,
	}
	if p.Status == "" {
		p.Status = "published"
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.tickLocked()
	}
	p.UpdatedAt = p.CreatedAt
	s.posts[p.ID] = p
	return p.ID
}

// AddComment attaches a comment directly and returns its id.
func (s *Server) AddComment(postID, authorID, content string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &comment{ID: newID(), PostID: postID, AuthorID: authorID, Content: content, CreatedAt: s.tickLocked()}
	s.comments[c.ID] = c
	return c.ID
}

// SetExtraLikes adds n likes to a post from users the test does not model,
// so the server's count differs from what a client would guess.
func (s *Server) SetExtraLikes(postID string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extra[postID] = n
}

// Likes returns the like count the server would report for a post.
func (s *Server) Likes(postID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.likeCountLocked(postID)
}

// HasPost reports whether a post exists.
func (s *Server) HasPost(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.posts[id]
	return ok
}

// HasComment reports whether a comment exists.
func (s *Server) HasComment(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.comments[id]
	return ok
}

// CommentCount returns how many comments a post has.
func (s *Server) CommentCount(postID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.commentsForLocked(postID))
}

func (s *Server) addUserLocked(name, email, bio string, hash []byte) string {
	email = strings.ToLower(email)
	u := &user{ID: newID(), Name: name, Email: email, Bio: bio, passwordHash: hash}
	s.users[u.ID] = u
	s.byEmail[email] = u.ID
	return u.ID
}

// tickLocked advances the server clock by a minute so creation order is
// reflected in timestamps.
func (s *Server) tickLocked() time.Time {
	s.clock = s.clock.Add(time.Minute)
	return s.clock
}

package auth

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/user/blogdesk-go/apiclient"
	"github.com/user/blogdesk-go/apitest"
	"github.com/user/blogdesk-go/apperror"
	"github.com/user/blogdesk-go/notify"
	"github.com/user/blogdesk-go/storage"
)

// offlineDoer fails the test if the store tries to reach the server.
type offlineDoer struct{ t *testing.T }

func (d offlineDoer) Do(ctx context.Context, req apiclient.Request, out any) (*apiclient.Envelope, error) {
	d.t.Helper()
	d.t.Fatalf("unexpected request %s %s", req.Method, req.Path)
	return nil, nil
}

func newTestStore(t *testing.T) (*Store, *apitest.Server, *storage.MemoryStore, *notify.Recorder) {
	t.Helper()
	srv := apitest.New(t)
	st := storage.NewMemoryStore()
	rec := &notify.Recorder{}
	return NewStore(st, srv.Client(), rec), srv, st, rec
}

func TestLoginThenInitializeRestoresSession(t *testing.T) {
	store, srv, st, _ := newTestStore(t)
	id := srv.AddUser("Ada Lovelace", "ada@example.com", "Secr3t!")

	session, err := store.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "Secr3t!"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if session.User.ID != id || session.Token == "" {
		t.Fatalf("unexpected session %+v", session)
	}
	if !store.IsAuthenticated() || store.Token() != session.Token {
		t.Fatal("store not authenticated after Login")
	}

	// Simulate a restart: a fresh store over the same storage, with no server.
	reloaded := NewStore(st, offlineDoer{t}, nil)
	reloaded.Initialize(context.Background())

	got, ok := reloaded.Current()
	if !ok {
		t.Fatal("session not restored")
	}
	if got.User.ID != id || got.Token != session.Token {
		t.Fatalf("restored (%s, %s), want (%s, %s)", got.User.ID, got.Token, id, session.Token)
	}
	if srv.Count(apitest.RouteLogin) != 1 {
		t.Fatalf("login requests = %d, want 1", srv.Count(apitest.RouteLogin))
	}
}

func TestLoginFailureKeepsExistingSession(t *testing.T) {
	store, srv, _, _ := newTestStore(t)
	srv.AddUser("Ada", "ada@example.com", "Secr3t!")
	srv.AddUser("Bob", "bob@example.com", "Secr3t!")

	first, err := store.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "Secr3t!"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	_, err = store.Login(context.Background(), LoginRequest{Email: "bob@example.com", Password: "wrong"})
	if !apperror.IsAuthError(err) {
		t.Fatalf("error = %v, want AuthError", err)
	}
	if msg := apperror.UserMessage(err, ""); msg != "Invalid credentials" {
		t.Fatalf("message = %q, want server message", msg)
	}
	if store.Token() != first.Token {
		t.Fatal("failed login replaced the existing session")
	}
}

func TestLoginNetworkFailureIsAuthErrorWithFallback(t *testing.T) {
	store, srv, _, _ := newTestStore(t)
	srv.Fail(apitest.RouteLogin, http.StatusInternalServerError, "")

	_, err := store.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "x"})
	if !apperror.IsAuthError(err) {
		t.Fatalf("error = %v, want AuthError", err)
	}
	if store.IsAuthenticated() {
		t.Fatal("store authenticated after a failed login")
	}
}

func TestLoginValidationSkipsNetwork(t *testing.T) {
	store := NewStore(storage.NewMemoryStore(), offlineDoer{t}, nil)
	for _, req := range []LoginRequest{
		{Email: "", Password: "x"},
		{Email: "not-an-email", Password: "x"},
		{Email: "ada@example.com", Password: ""},
	} {
		if _, err := store.Login(context.Background(), req); !apperror.IsValidationError(err) {
			t.Fatalf("Login(%+v) error = %v, want ValidationError", req, err)
		}
	}
}

func TestRegister(t *testing.T) {
	store, srv, st, _ := newTestStore(t)

	_, err := store.Register(context.Background(), RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "password"})
	if !apperror.IsValidationError(err) {
		t.Fatalf("weak password error = %v, want ValidationError", err)
	}
	_, err = store.Register(context.Background(), RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "Secr3t!", ConfirmPassword: "other"})
	if !apperror.IsValidationError(err) {
		t.Fatalf("mismatched confirmation error = %v, want ValidationError", err)
	}
	if srv.Count(apitest.RouteRegister) != 0 {
		t.Fatal("invalid registrations reached the server")
	}

	session, err := store.Register(context.Background(), RegisterRequest{Name: " Ada ", Email: "ada@example.com", Password: "Secr3t!", Bio: "Countess"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if session.User.Name != "Ada" || session.User.Bio != "Countess" {
		t.Fatalf("unexpected user %+v", session.User)
	}
	if v, ok, _ := st.Get(storage.KeyToken); !ok || v != session.Token {
		t.Fatal("token not persisted")
	}

	_, err = store.Register(context.Background(), RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "Secr3t!"})
	if !apperror.IsAuthError(err) || apperror.UserMessage(err, "") != "User already exists with this email" {
		t.Fatalf("duplicate registration error = %v", err)
	}
}

func TestInitializeClearsBadState(t *testing.T) {
	srv := apitest.New(t)
	id := srv.AddUser("Ada", "ada@example.com", "Secr3t!")

	cases := map[string]map[string]string{
		"corrupt user":  {storage.KeyToken: "opaque", storage.KeyUser: "{not json"},
		"missing user":  {storage.KeyToken: "opaque"},
		"missing token": {storage.KeyUser: `{"_id":"u1"}`},
		"expired jwt":   {storage.KeyToken: srv.IssueToken(id, -time.Minute), storage.KeyUser: `{"_id":"` + id + `"}`},
	}
	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			st := storage.NewMemoryStore()
			if err := st.Put(values); err != nil {
				t.Fatal(err)
			}
			store := NewStore(st, offlineDoer{t}, nil)
			store.Initialize(context.Background())

			if store.IsAuthenticated() {
				t.Fatal("store authenticated from bad state")
			}
			if st.Len() != 0 {
				t.Fatalf("storage not cleared, %d keys left", st.Len())
			}
		})
	}
}

func TestInitializeAcceptsOpaqueAndLiveTokens(t *testing.T) {
	srv := apitest.New(t)
	id := srv.AddUser("Ada", "ada@example.com", "Secr3t!")

	for _, token := range []string{"opaque-token", srv.IssueToken(id, time.Hour)} {
		st := storage.NewMemoryStore()
		st.Put(map[string]string{storage.KeyToken: token, storage.KeyUser: `{"id":"` + id + `","name":"Ada"}`})
		store := NewStore(st, offlineDoer{t}, nil)
		store.Initialize(context.Background())

		got, ok := store.Current()
		if !ok || got.User.ID != id || got.Token != token {
			t.Fatalf("token %q: restored %+v, %v", token, got, ok)
		}
	}
}

func TestLogout(t *testing.T) {
	store, srv, st, rec := newTestStore(t)
	srv.AddUser("Ada", "ada@example.com", "Secr3t!")
	if _, err := store.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "Secr3t!"}); err != nil {
		t.Fatal(err)
	}
	gen := store.Generation()

	store.Logout()
	if store.IsAuthenticated() || store.Token() != "" || st.Len() != 0 {
		t.Fatal("logout left session state behind")
	}
	if store.Generation() == gen {
		t.Fatal("generation did not change on logout")
	}
	if n, ok := rec.Last(); !ok || n.Message != msgLoggedOut {
		t.Fatalf("last notification = %+v", n)
	}

	store.Logout()
	if store.IsAuthenticated() {
		t.Fatal("second logout changed state")
	}
}

func TestHandleUnauthorized(t *testing.T) {
	store, srv, st, rec := newTestStore(t)
	srv.AddUser("Ada", "ada@example.com", "Secr3t!")
	if _, err := store.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "Secr3t!"}); err != nil {
		t.Fatal(err)
	}

	if store.HandleUnauthorized(apperror.NewNotFoundError("gone", nil)) {
		t.Fatal("NotFound treated as unauthorized")
	}
	if !store.IsAuthenticated() {
		t.Fatal("session lost on an unrelated error")
	}

	if !store.HandleUnauthorized(apperror.FromStatus(http.StatusUnauthorized, "", false)) {
		t.Fatal("Unauthorized not handled")
	}
	if store.IsAuthenticated() || st.Len() != 0 {
		t.Fatal("session survived an Unauthorized error")
	}
	if n, _ := rec.Last(); n.Message != msgSessionExpired {
		t.Fatalf("last notification = %q", n.Message)
	}
}

func TestUpdateProfile(t *testing.T) {
	store, srv, st, _ := newTestStore(t)
	if err := store.UpdateProfile(User{Name: "x"}); !apperror.IsAuthRequired(err) {
		t.Fatalf("anonymous UpdateProfile error = %v", err)
	}

	id := srv.AddUser("Ada", "ada@example.com", "Secr3t!")
	if _, err := store.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "Secr3t!"}); err != nil {
		t.Fatal(err)
	}
	if err := store.UpdateProfile(User{ID: id, Name: "Ada L.", Email: "ada@example.com", Bio: "Analyst"}); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if err := store.UpdateProfile(User{ID: "someone-else", Name: "Mallory"}); !apperror.IsValidationError(err) {
		t.Fatalf("foreign snapshot error = %v", err)
	}

	reloaded := NewStore(st, offlineDoer{t}, nil)
	reloaded.Initialize(context.Background())
	got, _ := reloaded.Current()
	if got.User.Name != "Ada L." || got.User.Bio != "Analyst" || got.User.ID != id {
		t.Fatalf("persisted user = %+v", got.User)
	}
}

func TestPasswordStrength(t *testing.T) {
	cases := map[string]int{
		"":        0,
		"abc":     1,
		"abcdef":  2,
		"Abcdef":  3,
		"Abcde1":  4,
		"Abcde1!": 5,
		"123456":  2,
		"éééééé":  2,
		"ÀBCDEF":  3,
		"ab1":     2,
	}
	for pw, want := range cases {
		if got := PasswordStrength(pw); got != want {
			t.Errorf("PasswordStrength(%q) = %d, want %d", pw, got, want)
		}
	}
}

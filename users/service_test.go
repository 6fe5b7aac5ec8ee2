package users

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/user/blogdesk-go/apitest"
	"github.com/user/blogdesk-go/apperror"
	"github.com/user/blogdesk-go/auth"
	"github.com/user/blogdesk-go/notify"
	"github.com/user/blogdesk-go/storage"
)

func strPtr(s string) *string { return &s }

func newTestService(t *testing.T) (*Service, *auth.Store, *apitest.Server, string) {
	t.Helper()
	srv := apitest.New(t)
	id := srv.AddUser("Ada", "ada@example.com", "Secr3t!")
	api := srv.Client()
	store := auth.NewStore(storage.NewMemoryStore(), api, &notify.Recorder{})
	if _, err := store.Login(context.Background(), auth.LoginRequest{Email: "ada@example.com", Password: "Secr3t!"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	return NewService(api, store), store, srv, id
}

func TestUpdateProfileValidation(t *testing.T) {
	svc, _, srv, _ := newTestService(t)

	tests := []struct {
		name string
		req  UpdateProfileRequest
		want string
	}{
		{"nothing", UpdateProfileRequest{}, "No fields provided for update"},
		{"short name", UpdateProfileRequest{Name: strPtr(" A ")}, "Name must be at least 2 characters"},
		{"bad email", UpdateProfileRequest{Email: strPtr("not-an-email")}, "Please enter a valid email address"},
		{"long bio", UpdateProfileRequest{Bio: strPtr(strings.Repeat("b", 501))}, "Bio cannot exceed 500 characters"},
		{"bad avatar", UpdateProfileRequest{Avatar: strPtr("nope")}, "Avatar must be a valid URL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateProfile(context.Background(), tt.req)
			if !apperror.IsValidationError(err) {
				t.Fatalf("error = %v, want ValidationError", err)
			}
			if got := apperror.UserMessage(err, ""); got != tt.want {
				t.Errorf("message = %q, want %q", got, tt.want)
			}
		})
	}
	if n := srv.Count(apitest.RouteUpdateProfile); n != 0 {
		t.Fatalf("invalid updates reached the server %d times", n)
	}
}

func TestUpdateProfileUpdatesSession(t *testing.T) {
	svc, store, _, id := newTestService(t)

	updated, err := svc.UpdateProfile(context.Background(), UpdateProfileRequest{
		Name: strPtr("  Ada Lovelace "),
		Bio:  strPtr("Analyst"),
	})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.ID != id || updated.Name != "Ada Lovelace" {
		t.Errorf("updated = %+v", updated)
	}
	session, ok := store.Current()
	if !ok {
		t.Fatal("session lost")
	}
	if session.User.Name != "Ada Lovelace" || session.User.Bio != "Analyst" || session.User.Email != "ada@example.com" {
		t.Errorf("session user = %+v", session.User)
	}
}

func TestUpdateProfileUnauthorizedEndsSession(t *testing.T) {
	svc, store, srv, _ := newTestService(t)
	srv.Fail(apitest.RouteUpdateProfile, http.StatusUnauthorized, "Token is not valid")

	_, err := svc.UpdateProfile(context.Background(), UpdateProfileRequest{Bio: strPtr("x")})
	if !apperror.IsUnauthorizedError(err) {
		t.Fatalf("error = %v", err)
	}
	if store.IsAuthenticated() {
		t.Fatal("session survived Unauthorized")
	}
	if _, err := svc.UpdateProfile(context.Background(), UpdateProfileRequest{Bio: strPtr("x")}); !apperror.IsAuthRequired(err) {
		t.Fatalf("anonymous update: %v", err)
	}
}

func TestStats(t *testing.T) {
	svc, store, srv, id := newTestService(t)
	content := strings.Repeat("content ", 10)
	p1 := srv.AddPost(id, apitest.PostSeed{Title: "One", Content: content, Category: "Food", Views: 10})
	srv.AddPost(id, apitest.PostSeed{Title: "Two", Content: content, Category: "Food", Views: 5})
	srv.SetExtraLikes(p1, 3)
	srv.AddComment(p1, id, "self comment")

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := Stats{TotalBlogs: 2, TotalViews: 15, TotalLikes: 3, TotalComments: 1}
	if *stats != want {
		t.Errorf("stats = %+v, want %+v", *stats, want)
	}

	store.Logout()
	if _, err := svc.Stats(context.Background()); !apperror.IsAuthRequired(err) {
		t.Fatalf("anonymous stats: %v", err)
	}
}

package main

import (
	"bytes"
	"context"
	"flag"
	"net/http"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/user/blogdesk-go/apitest"
	"github.com/user/blogdesk-go/apperror"
	"github.com/user/blogdesk-go/auth"
	"github.com/user/blogdesk-go/blogs"
	"github.com/user/blogdesk-go/notify"
	"github.com/user/blogdesk-go/storage"
)

func commandContext(t *testing.T, args ...string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	if err := set.Parse(args); err != nil {
		t.Fatal(err)
	}
	c := cli.NewContext(&cli.App{}, set, nil)
	c.Context = context.Background()
	return c
}

func TestPostFetchUnauthorizedEndsSession(t *testing.T) {
	commands := []struct {
		name string
		run  func(a *application, c *cli.Context) error
		args func(postID string) []string
	}{
		{"post show", (*application).showPost, func(id string) []string { return []string{id} }},
		{"post edit", (*application).editPost, func(id string) []string { return []string{id} }},
		{"like", (*application).like, func(id string) []string { return []string{id} }},
		{"comment add", (*application).addComment, func(id string) []string { return []string{id, "nice", "post"} }},
		{"comment delete", (*application).deleteComment, func(id string) []string { return []string{id, "c1"} }},
	}
	for _, tc := range commands {
		t.Run(tc.name, func(t *testing.T) {
			srv := apitest.New(t)
			userID := srv.AddUser("Ada", "ada@example.com", "Secr3t!")
			postID := srv.AddPost(userID, apitest.PostSeed{Title: "A post title", Content: strings.Repeat("words ", 20), Category: "Travel"})
			api := srv.Client()
			st := storage.NewMemoryStore()
			sessions := auth.NewStore(st, api, &notify.Recorder{})
			if _, err := sessions.Login(context.Background(), auth.LoginRequest{Email: "ada@example.com", Password: "Secr3t!"}); err != nil {
				t.Fatalf("login: %v", err)
			}
			var errOut bytes.Buffer
			a := &application{
				sessions: sessions,
				posts:    blogs.NewService(api),
				console:  newConsole(strings.NewReader(""), &bytes.Buffer{}, &errOut),
			}
			srv.Fail(apitest.RouteGetPost, http.StatusUnauthorized, "Token is not valid")

			err := tc.run(a, commandContext(t, tc.args(postID)...))
			if !apperror.IsUnauthorizedError(err) {
				t.Fatalf("error = %v, want Unauthorized", err)
			}
			if sessions.IsAuthenticated() {
				t.Fatal("session survived Unauthorized")
			}
			if st.Len() != 0 {
				t.Fatal("durable storage not cleared")
			}
			if !strings.Contains(errOut.String(), "blogdesk login") {
				t.Errorf("no login hint in %q", errOut.String())
			}
		})
	}
}

// Package users covers the signed-in user's own account: updating the profile
// and reading account statistics. A successful profile update is handed to the
// Session Store so the cached identity matches the server.
package users

import (
	"context"
	"log"
	"net/http"

	"github.com/user/blogdesk-go/apiclient"
	"github.com/user/blogdesk-go/apperror"
	"github.com/user/blogdesk-go/auth"
)

// Sessions is the part of the Session Store this package uses.
type Sessions interface {
	Token() string
	UpdateProfile(user auth.User) error
	HandleUnauthorized(err error) bool
}

// Service performs account operations for the current session.
type Service struct {
	api      apiclient.Doer
	sessions Sessions
}

// NewService creates a Service.
func NewService(api apiclient.Doer, sessions Sessions) *Service {
	return &Service{api: api, sessions: sessions}
}

// UpdateProfile sends req to PUT /users/profile and stores the server's answer
// in the session. A rejected credential ends the session.
func (s *Service) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*auth.User, error) {
	token := s.sessions.Token()
	if token == "" {
		return nil, apperror.NewAuthRequiredError("Please login to update your profile")
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	var updated auth.User
	_, err := s.api.Do(ctx, apiclient.Request{Method: http.MethodPut, Path: "/users/profile", Token: token, Body: req}, &updated)
	if err != nil {
		s.sessions.HandleUnauthorized(err)
		return nil, err
	}
	if err := s.sessions.UpdateProfile(updated); err != nil {
		log.Printf("users: profile saved on server but not locally: %v", err)
		return nil, err
	}
	return &updated, nil
}

// Stats fetches the account totals.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	token := s.sessions.Token()
	if token == "" {
		return nil, apperror.NewAuthRequiredError("Please login to see your statistics")
	}
	var stats Stats
	if _, err := s.api.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: "/users/stats", Token: token}, &stats); err != nil {
		s.sessions.HandleUnauthorized(err)
		return nil, err
	}
	return &stats, nil
}

package blogs

import (
	"context"
	"net/http"
	"net/url"

	"github.com/goccy/go-json"

	"github.com/user/blogdesk-go/apiclient"
	"github.com/user/blogdesk-go/apperror"
)

// Service talks to the /blogs endpoints.
// Every method takes the bearer token explicitly so the service never reads
// session state on its own.
type Service struct {
	api apiclient.Doer
}

// NewService creates a Service on top of the given transport.
func NewService(api apiclient.Doer) *Service {
	return &Service{api: api}
}

// List fetches the public post list, optionally filtered.
func (s *Service) List(ctx context.Context, q ListQuery) ([]Post, error) {
	query := url.Values{}
	if q.Search != "" {
		query.Set("search", q.Search)
	}
	if q.Category != "" && q.Category != "all" {
		query.Set("category", q.Category)
	}
	var posts []Post
	if _, err := s.api.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: "/blogs", Query: query}, &posts); err != nil {
		return nil, err
	}
	return nonNil(posts), nil
}

// Get fetches a single post with its comments. token may be empty; when set the
// server fills in isLiked and isAuthor for the viewer.
func (s *Service) Get(ctx context.Context, token, id string) (*Post, error) {
	var post Post
	if _, err := s.api.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: "/blogs/" + url.PathEscape(id), Token: token}, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// MyPosts fetches every post written by the token's owner, drafts included.
func (s *Service) MyPosts(ctx context.Context, token string) ([]Post, error) {
	var posts []Post
	if _, err := s.api.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: "/blogs/my-blogs", Token: token}, &posts); err != nil {
		return nil, err
	}
	return nonNil(posts), nil
}

// Create validates in and publishes or saves it as a draft.
func (s *Service) Create(ctx context.Context, token string, in PostInput) (*Post, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var post Post
	if _, err := s.api.Do(ctx, apiclient.Request{Method: http.MethodPost, Path: "/blogs", Token: token, Body: in}, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// Update validates in and replaces the post's editable fields.
func (s *Service) Update(ctx context.Context, token, id string, in PostInput) (*Post, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var post Post
	if _, err := s.api.Do(ctx, apiclient.Request{Method: http.MethodPut, Path: "/blogs/" + url.PathEscape(id), Token: token, Body: in}, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// Delete removes a post.
func (s *Service) Delete(ctx context.Context, token, id string) error {
	_, err := s.api.Do(ctx, apiclient.Request{Method: http.MethodDelete, Path: "/blogs/" + url.PathEscape(id), Token: token}, nil)
	return err
}

// LikeResult is the server's answer to a like toggle.
type LikeResult struct {
	LikeState
	Message string
}

// likeWire is a like answer as sent. Missing fields stay nil so a body
// without the state is told apart from an unliked post with no likes.
type likeWire struct {
	IsLiked    *bool `json:"isLiked"`
	LikesCount *int  `json:"likesCount"`
}

func (w likeWire) complete() bool { return w.IsLiked != nil && w.LikesCount != nil }

// ToggleLike flips the viewer's like on a post and returns the server's
// authoritative state. The state is read from data when present and from the
// top level of the body otherwise. A success that carries no like state is
// an UnknownError.
func (s *Service) ToggleLike(ctx context.Context, token, id string) (*LikeResult, error) {
	var wire likeWire
	env, err := s.api.Do(ctx, apiclient.Request{Method: http.MethodPost, Path: "/blogs/" + url.PathEscape(id) + "/like", Token: token}, &wire)
	if err != nil {
		return nil, err
	}
	if !wire.complete() {
		wire = likeWire{}
		if err := decodeTopLevel(env.Raw, &wire); err != nil {
			return nil, err
		}
	}
	if !wire.complete() {
		return nil, apperror.NewAppError(apperror.UnknownError, "Unexpected response from server", nil)
	}
	return &LikeResult{LikeState: LikeState{IsLiked: *wire.IsLiked, LikesCount: *wire.LikesCount}, Message: env.Message}, nil
}

func decodeTopLevel(raw []byte, out any) error {
	if len(raw) == 0 {
		return apperror.NewAppError(apperror.UnknownError, "Unexpected response from server", nil)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperror.NewAppError(apperror.UnknownError, "Unexpected response from server", err)
	}
	return nil
}

// Package comments validates comment drafts and sends comment additions and
// deletions to the API server. Comments themselves are embedded in the post
// returned by GET /blogs/{id}; this package never lists them on its own.
package comments

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/user/blogdesk-go/apiclient"
	"github.com/user/blogdesk-go/apperror"
	"github.com/user/blogdesk-go/blogs"
)

// MaxLength is the longest comment accepted, in characters.
const MaxLength = 1000

// NewComment is the payload of POST /blogs/{id}/comment.
type NewComment struct {
	Content string `json:"content" validate:"required,max=1000"`
}

var newCommentMessages = map[string]string{
	"Content.required": "Please enter a comment",
	"Content.max":      "Comment cannot exceed 1000 characters",
}

// Validate trims body and checks it: non-empty and at most MaxLength
// characters after trimming. It returns the trimmed body.
func Validate(body string) (string, error) {
	req := NewComment{Content: strings.TrimSpace(body)}
	if err := apperror.Validate(req, newCommentMessages); err != nil {
		return "", err
	}
	return req.Content, nil
}

// Service talks to the comment endpoints.
type Service struct {
	api apiclient.Doer
}

// NewService creates a Service on top of the given transport.
func NewService(api apiclient.Doer) *Service {
	return &Service{api: api}
}

// Add posts a comment on postID. The body is validated first; an invalid body
// never reaches the network.
func (s *Service) Add(ctx context.Context, token, postID, body string) (*blogs.Comment, error) {
	content, err := Validate(body)
	if err != nil {
		return nil, err
	}
	var created blogs.Comment
	_, err = s.api.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/blogs/" + url.PathEscape(postID) + "/comment",
		Token:  token,
		Body:   NewComment{Content: content},
	}, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// Delete removes a comment.
func (s *Service) Delete(ctx context.Context, token, commentID string) error {
	_, err := s.api.Do(ctx, apiclient.Request{
		Method: http.MethodDelete,
		Path:   "/comments/" + url.PathEscape(commentID),
		Token:  token,
	}, nil)
	return err
}

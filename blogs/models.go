// Package blogs holds the post and comment model as the client sees it, the
// fixed category table, the post editor input with its validation rules, and the
// calls that read and write posts on the API server.
package blogs

import (
	"bytes"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Status is the publication state of a post.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// Author is the writer of a post or comment. The server sends either a bare
// id string or a populated object; both decode into an Author.
type Author struct {
	ID     string `json:"_id"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
	Bio    string `json:"bio,omitempty"`
}

// UnmarshalJSON accepts "abc123" as well as {"_id": "abc123", "name": ...}.
func (a *Author) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = Author{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return fmt.Errorf("decoding author id: %w", err)
		}
		*a = Author{ID: id}
		return nil
	}
	type plain Author
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decoding author: %w", err)
	}
	*a = Author(p)
	return nil
}

// DisplayName is the name to show for the author.
func (a Author) DisplayName() string {
	if a.Name == "" {
		return "Anonymous"
	}
	return a.Name
}

// Comment is one comment attached to a post.
type Comment struct {
	ID        string    `json:"_id"`
	PostID    string    `json:"blog,omitempty"`
	Author    Author    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Post is a single article as rendered by the client.
// Counters may be absent in server payloads and then read as zero.
type Post struct {
	ID            string    `json:"_id"`
	Author        Author    `json:"author"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Excerpt       string    `json:"excerpt,omitempty"`
	Category      string    `json:"category,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	Status        Status    `json:"status,omitempty"`
	Views         int       `json:"views"`
	LikesCount    int       `json:"likesCount"`
	CommentsCount int       `json:"commentsCount"`
	ReadingTime   int       `json:"readingTime,omitempty"`
	IsLiked       bool      `json:"isLiked"`
	IsAuthor      bool      `json:"isAuthor"`
	Comments      []Comment `json:"comments,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt,omitempty"`
}

// Published reports whether the post is publicly visible.
func (p *Post) Published() bool {
	return p.Status == StatusPublished
}

// OwnedBy reports whether userID wrote the post.
func (p *Post) OwnedBy(userID string) bool {
	return userID != "" && p.Author.ID == userID
}

// LikeState is the pair the like toggle reads and writes.
type LikeState struct {
	IsLiked    bool `json:"isLiked"`
	LikesCount int  `json:"likesCount"`
}

// Like returns the post's current like state.
func (p *Post) Like() LikeState {
	return LikeState{IsLiked: p.IsLiked, LikesCount: p.LikesCount}
}

// SetLike overwrites the post's like state. Negative counts are stored as zero.
func (p *Post) SetLike(s LikeState) {
	p.IsLiked = s.IsLiked
	p.LikesCount = max(s.LikesCount, 0)
}

// Flipped is the optimistic guess for toggling s.
func (s LikeState) Flipped() LikeState {
	if s.IsLiked {
		return LikeState{IsLiked: false, LikesCount: max(s.LikesCount-1, 0)}
	}
	return LikeState{IsLiked: true, LikesCount: s.LikesCount + 1}
}

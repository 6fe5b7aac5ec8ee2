package apitest

import "time"

// These are the server's own records. They deliberately do not reuse the
// client packages' types: the fake must speak the wire format, not share it.

type user struct {
	ID           string `json:"_id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Avatar       string `json:"avatar,omitempty"`
	Bio          string `json:"bio,omitempty"`
	passwordHash []byte
}

type post struct {
	ID        string
	AuthorID  string
	Title     string
	Content   string
	Excerpt   string
	Category  string
	Tags      []string
	Status    string
	Views     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

type comment struct {
	ID        string
	PostID    string
	AuthorID  string
	Content   string
	CreatedAt time.Time
}

// PostSeed describes a post added directly with AddPost.
type PostSeed struct {
	Title     string
	Content   string
	Category  string
	Tags      []string
	Status    string // defaults to published
	Views     int
	CreatedAt time.Time // defaults to the server clock
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type postInput struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Excerpt  string   `json:"excerpt"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
	Status   string   `json:"status"`
}

type credentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Bio      string `json:"bio"`
}

type profileInput struct {
	Name   *string `json:"name"`
	Email  *string `json:"email"`
	Bio    *string `json:"bio"`
	Avatar *string `json:"avatar"`
}

package blogs

import (
	"strings"

	"github.com/user/blogdesk-go/apperror"
)

// PostInput is the editor payload for creating or updating a post.
type PostInput struct {
	Title    string   `json:"title" validate:"required,min=5,max=200"`
	Content  string   `json:"content" validate:"required,min=50"`
	Excerpt  string   `json:"excerpt,omitempty" validate:"max=300"`
	Category string   `json:"category" validate:"required,oneof=Technology Lifestyle Travel Food Business Health Education Entertainment Other"`
	Tags     []string `json:"tags"`
	Status   Status   `json:"status" validate:"oneof=draft published"`
}

var postInputMessages = map[string]string{
	"Title.required":    "Title is required",
	"Title.min":         "Title must be at least 5 characters long",
	"Title.max":         "Title cannot exceed 200 characters",
	"Content.required":  "Content is required",
	"Content.min":       "Content must be at least 50 characters long",
	"Excerpt.max":       "Excerpt cannot exceed 300 characters",
	"Category.required": "Please select a category",
	"Category.oneof":    "Please select a valid category",
	"Status.oneof":      "Status must be draft or published",
}

// Normalize trims text fields, defaults the status to draft and cleans the tags.
func (in *PostInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.Excerpt = strings.TrimSpace(in.Excerpt)
	in.Category = strings.TrimSpace(in.Category)
	if in.Status == "" {
		in.Status = StatusDraft
	}
	in.Tags = cleanTags(in.Tags)
}

// Validate normalizes the input and checks it. The returned error is an
// apperror ValidationError naming the first problem.
func (in *PostInput) Validate() error {
	in.Normalize()
	return apperror.Validate(in, postInputMessages)
}

// FromPost fills an editor input from an existing post.
func FromPost(p *Post) PostInput {
	return PostInput{
		Title:    p.Title,
		Content:  p.Content,
		Excerpt:  p.Excerpt,
		Category: p.Category,
		Tags:     append([]string(nil), p.Tags...),
		Status:   p.Status,
	}
}

// ParseTags splits comma separated editor text into tags.
func ParseTags(text string) []string {
	return cleanTags(strings.Split(text, ","))
}

// cleanTags trims every tag, drops empties and removes duplicates while
// keeping first-seen order.
func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// ListQuery filters the public post list.
type ListQuery struct {
	Search   string
	Category string // empty or "all" means every category
}

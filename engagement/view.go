package engagement

import (
	"slices"
	"sync"

	"github.com/user/blogdesk-go/blogs"
)

// PostView is the locally rendered state of one post. The controller writes
// optimistic and confirmed state into it; readers take snapshots.
// Once closed, the view no longer accepts results.
type PostView struct {
	mu     sync.Mutex
	post   blogs.Post
	closed bool
}

// NewPostView creates a view showing p.
func NewPostView(p blogs.Post) *PostView {
	return &PostView{post: p}
}

// ID returns the post id.
func (v *PostView) ID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.post.ID
}

// Snapshot returns a copy of the rendered post.
func (v *PostView) Snapshot() blogs.Post {
	v.mu.Lock()
	defer v.mu.Unlock()
	p := v.post
	p.Tags = slices.Clone(v.post.Tags)
	p.Comments = slices.Clone(v.post.Comments)
	return p
}

// Like returns the rendered like state.
func (v *PostView) Like() blogs.LikeState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.post.Like()
}

// Close marks the view as dismissed. Results that arrive afterwards are dropped.
func (v *PostView) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
}

// Closed reports whether Close was called.
func (v *PostView) Closed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

func (v *PostView) setLike(s blogs.LikeState) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.post.SetLike(s)
}

func (v *PostView) replace(p blogs.Post) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.post = p
}

func (v *PostView) prependComment(c blogs.Comment) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.post.Comments = append([]blogs.Comment{c}, v.post.Comments...)
	v.post.CommentsCount++
}

func (v *PostView) comment(id string) (blogs.Comment, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, c := range v.post.Comments {
		if c.ID == id {
			return c, true
		}
	}
	return blogs.Comment{}, false
}

func (v *PostView) removeComment(id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	i := slices.IndexFunc(v.post.Comments, func(c blogs.Comment) bool { return c.ID == id })
	if i < 0 {
		return false
	}
	v.post.Comments = slices.Delete(v.post.Comments, i, i+1)
	v.post.CommentsCount = max(v.post.CommentsCount-1, 0)
	return true
}

// PostList is a locally rendered list of posts, such as the dashboard's.
type PostList struct {
	mu     sync.Mutex
	posts  []blogs.Post
	closed bool
}

// NewPostList creates a list showing posts.
func NewPostList(posts []blogs.Post) *PostList {
	return &PostList{posts: slices.Clone(posts)}
}

// Posts returns a copy of the listed posts.
func (l *PostList) Posts() []blogs.Post {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := slices.Clone(l.posts)
	if out == nil {
		out = []blogs.Post{}
	}
	return out
}

// Len returns the number of listed posts.
func (l *PostList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.posts)
}

// Replace swaps in a freshly fetched list.
func (l *PostList) Replace(posts []blogs.Post) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.posts = slices.Clone(posts)
}

// Close marks the list as dismissed.
func (l *PostList) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
}

// Closed reports whether Close was called.
func (l *PostList) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *PostList) find(id string) (blogs.Post, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.posts {
		if p.ID == id {
			return p, true
		}
	}
	return blogs.Post{}, false
}

func (l *PostList) remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := slices.IndexFunc(l.posts, func(p blogs.Post) bool { return p.ID == id })
	if i < 0 {
		return false
	}
	l.posts = slices.Delete(l.posts, i, i+1)
	return true
}

// Draft is the text of a comment being written. It survives failed
// submissions and is cleared by a successful one.
type Draft struct {
	mu   sync.Mutex
	body string
}

// NewDraft creates a draft holding body.
func NewDraft(body string) *Draft {
	return &Draft{body: body}
}

// Set replaces the draft text.
func (d *Draft) Set(body string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.body = body
}

// Body returns the draft text.
func (d *Draft) Body() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.body
}

func (d *Draft) clear() {
	d.Set("")
}

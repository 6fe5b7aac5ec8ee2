package apitest

import (
	"net/http"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
)

// maxCommentLength mirrors the server's own limit.
const maxCommentLength = 1000

func (s *Server) HandleListPosts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		search := strings.ToLower(r.URL.Query().Get("search"))
		category := r.URL.Query().Get("category")

		s.mu.Lock()
		defer s.mu.Unlock()
		out := make([]map[string]any, 0)
		for _, p := range s.sortedPostsLocked() {
			if p.Status != "published" {
				continue
			}
			if category != "" && p.Category != category {
				continue
			}
			if search != "" && !strings.Contains(strings.ToLower(p.Title+" "+p.Content), search) {
				continue
			}
			out = append(out, s.renderPostLocked(p, "", true, false))
		}
		writeOK(w, "", out)
	}
}

func (s *Server) HandleMyPosts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := userIDFrom(r.Context())

		s.mu.Lock()
		defer s.mu.Unlock()
		out := make([]map[string]any, 0)
		for _, p := range s.sortedPostsLocked() {
			if p.AuthorID == userID {
				// The author comes back unpopulated here, as a bare id.
				out = append(out, s.renderPostLocked(p, userID, false, false))
			}
		}
		writeOK(w, "", out)
	}
}

func (s *Server) HandleGetPost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		viewer := userIDFrom(r.Context())

		s.mu.Lock()
		defer s.mu.Unlock()
		p, ok := s.posts[id]
		if !ok {
			writeError(w, http.StatusNotFound, "Blog not found")
			return
		}
		p.Views++
		writeOK(w, "", s.renderPostLocked(p, viewer, true, true))
	}
}

func (s *Server) HandleCreatePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in postInput
		if err := decodeBody(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
		if problem := checkPostInput(in); problem != "" {
			writeError(w, http.StatusBadRequest, problem)
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		now := s.tickLocked()
		p := &post{
			ID:        newID(),
			AuthorID:  userIDFrom(r.Context()),
			Title:     in.Title,
			Content:   in.Content,
			Excerpt:   in.Excerpt,
			Category:  in.Category,
			Tags:      in.Tags,
			Status:    in.Status,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if p.Status == "" {
			p.Status = "draft"
		}
		s.posts[p.ID] = p
		writeJSON(w, http.StatusCreated, envelope{Success: true, Message: "Blog created successfully", Data: s.renderPostLocked(p, p.AuthorID, true, false)})
	}
}

func (s *Server) HandleUpdatePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in postInput
		if err := decodeBody(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
		if problem := checkPostInput(in); problem != "" {
			writeError(w, http.StatusBadRequest, problem)
			return
		}
		userID := userIDFrom(r.Context())

		s.mu.Lock()
		defer s.mu.Unlock()
		p, ok := s.posts[chi.URLParam(r, "id")]
		if !ok {
			writeError(w, http.StatusNotFound, "Blog not found")
			return
		}
		if p.AuthorID != userID {
			writeError(w, http.StatusForbidden, "Not authorized to update this blog")
			return
		}
		p.Title, p.Content, p.Excerpt, p.Category, p.Tags = in.Title, in.Content, in.Excerpt, in.Category, in.Tags
		if in.Status != "" {
			p.Status = in.Status
		}
		p.UpdatedAt = s.tickLocked()
		writeOK(w, "Blog updated successfully", s.renderPostLocked(p, userID, true, false))
	}
}

func (s *Server) HandleDeletePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := userIDFrom(r.Context())

		s.mu.Lock()
		defer s.mu.Unlock()
		p, ok := s.posts[chi.URLParam(r, "id")]
		if !ok {
			writeError(w, http.StatusNotFound, "Blog not found")
			return
		}
		if p.AuthorID != userID {
			writeError(w, http.StatusForbidden, "Not authorized to delete this blog")
			return
		}
		for id, c := range s.comments {
			if c.PostID == p.ID {
				delete(s.comments, id)
			}
		}
		delete(s.likes, p.ID)
		delete(s.extra, p.ID)
		delete(s.posts, p.ID)
		writeOK(w, "Blog deleted successfully", nil)
	}
}

func (s *Server) HandleToggleLike() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := userIDFrom(r.Context())

		s.mu.Lock()
		defer s.mu.Unlock()
		id := chi.URLParam(r, "id")
		if _, ok := s.posts[id]; !ok {
			writeError(w, http.StatusNotFound, "Blog not found")
			return
		}
		likers := s.likes[id]
		if likers == nil {
			likers = make(map[string]bool)
			s.likes[id] = likers
		}
		liked := !likers[userID]
		if liked {
			likers[userID] = true
		} else {
			delete(likers, userID)
		}
		message := "Post liked"
		if !liked {
			message = "Like removed"
		}
		count := s.likeCountLocked(id)

		if s.topLevelLikes {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": message, "isLiked": liked, "likesCount": count})
			return
		}
		writeOK(w, message, map[string]any{"isLiked": liked, "likesCount": count})
	}
}

func (s *Server) HandleAddComment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Content string `json:"content"`
		}
		if err := decodeBody(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
		content := strings.TrimSpace(in.Content)
		if content == "" || utf8.RuneCountInString(content) > maxCommentLength {
			writeError(w, http.StatusBadRequest, "Comment must be between 1 and 1000 characters")
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		postID := chi.URLParam(r, "id")
		if _, ok := s.posts[postID]; !ok {
			writeError(w, http.StatusNotFound, "Blog not found")
			return
		}
		c := &comment{ID: newID(), PostID: postID, AuthorID: userIDFrom(r.Context()), Content: content, CreatedAt: s.tickLocked()}
		s.comments[c.ID] = c
		writeJSON(w, http.StatusCreated, envelope{Success: true, Message: "Comment added successfully", Data: s.renderCommentLocked(c)})
	}
}

func (s *Server) HandleDeleteComment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := userIDFrom(r.Context())

		s.mu.Lock()
		defer s.mu.Unlock()
		c, ok := s.comments[chi.URLParam(r, "id")]
		if !ok {
			writeError(w, http.StatusNotFound, "Comment not found")
			return
		}
		if c.AuthorID != userID {
			writeError(w, http.StatusForbidden, "Not authorized to delete this comment")
			return
		}
		delete(s.comments, c.ID)
		writeOK(w, "Comment deleted successfully", nil)
	}
}

func (s *Server) HandleUpdateProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in profileInput
		if err := decodeBody(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request payload")
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		u := s.users[userIDFrom(r.Context())]
		if in.Email != nil && !strings.EqualFold(*in.Email, u.Email) {
			if _, taken := s.byEmail[strings.ToLower(*in.Email)]; taken {
				writeError(w, http.StatusBadRequest, "Email is already in use")
				return
			}
			delete(s.byEmail, u.Email)
			u.Email = strings.ToLower(*in.Email)
			s.byEmail[u.Email] = u.ID
		}
		if in.Name != nil {
			u.Name = *in.Name
		}
		if in.Bio != nil {
			u.Bio = *in.Bio
		}
		if in.Avatar != nil {
			u.Avatar = *in.Avatar
		}
		writeOK(w, "Profile updated successfully", *u)
	}
}

func (s *Server) HandleUserStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := userIDFrom(r.Context())

		s.mu.Lock()
		defer s.mu.Unlock()
		writeOK(w, "", s.statsLocked(userID))
	}
}

func (s *Server) HandleAnalytics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := userIDFrom(r.Context())

		s.mu.Lock()
		defer s.mu.Unlock()
		writeOK(w, "", map[string]any{"overview": s.statsLocked(userID)})
	}
}

func checkPostInput(in postInput) string {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return "Title is required"
	case strings.TrimSpace(in.Content) == "":
		return "Content is required"
	case in.Status != "" && in.Status != "draft" && in.Status != "published":
		return "Invalid status"
	}
	return ""
}

func (s *Server) statsLocked(userID string) map[string]int {
	var posts, views, likes, comments int
	for _, p := range s.posts {
		if p.AuthorID != userID {
			continue
		}
		posts++
		views += p.Views
		likes += s.likeCountLocked(p.ID)
		comments += len(s.commentsForLocked(p.ID))
	}
	return map[string]int{"totalBlogs": posts, "totalViews": views, "totalLikes": likes, "totalComments": comments}
}

// sortedPostsLocked returns posts newest first.
func (s *Server) sortedPostsLocked() []*post {
	out := make([]*post, 0, len(s.posts))
	for _, p := range s.posts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *Server) likeCountLocked(postID string) int {
	return len(s.likes[postID]) + s.extra[postID]
}

// commentsForLocked returns a post's comments newest first.
func (s *Server) commentsForLocked(postID string) []*comment {
	var out []*comment
	for _, c := range s.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *Server) authorLocked(id string) any {
	u, ok := s.users[id]
	if !ok {
		return id
	}
	return map[string]any{"_id": u.ID, "name": u.Name, "avatar": u.Avatar, "bio": u.Bio}
}

func (s *Server) renderCommentLocked(c *comment) map[string]any {
	return map[string]any{
		"_id":       c.ID,
		"blog":      c.PostID,
		"author":    s.authorLocked(c.AuthorID),
		"content":   c.Content,
		"createdAt": c.CreatedAt,
	}
}

// renderPostLocked builds the wire form of p as seen by viewer.
func (s *Server) renderPostLocked(p *post, viewer string, populate, withComments bool) map[string]any {
	var author any = p.AuthorID
	if populate {
		author = s.authorLocked(p.AuthorID)
	}
	comments := s.commentsForLocked(p.ID)
	out := map[string]any{
		"_id":           p.ID,
		"author":        author,
		"title":         p.Title,
		"content":       p.Content,
		"excerpt":       p.Excerpt,
		"category":      p.Category,
		"tags":          p.Tags,
		"status":        p.Status,
		"views":         p.Views,
		"likesCount":    s.likeCountLocked(p.ID),
		"commentsCount": len(comments),
		"readingTime":   max(1, len(strings.Fields(p.Content))/200),
		"isLiked":       viewer != "" && s.likes[p.ID][viewer],
		"isAuthor":      viewer != "" && viewer == p.AuthorID,
		"createdAt":     p.CreatedAt,
		"updatedAt":     p.UpdatedAt,
	}
	if withComments {
		rendered := make([]map[string]any, 0, len(comments))
		for _, c := range comments {
			rendered = append(rendered, s.renderCommentLocked(c))
		}
		out["comments"] = rendered
	}
	return out
}

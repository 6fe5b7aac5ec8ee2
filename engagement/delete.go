package engagement

import (
	"context"
	"log"

	"github.com/user/blogdesk-go/apperror"
)

// Confirmation prompts shown before a deletion.
const (
	PromptDeletePost    = "Are you sure you want to delete this blog post? This action cannot be undone."
	PromptDeleteComment = "Are you sure you want to delete this comment?"
)

// DeleteComment deletes one of the viewer's own comments from the post shown
// in view, after the user confirms. The comment disappears from the view only
// once the server has deleted it.
func (c *Controller) DeleteComment(ctx context.Context, view *PostView, commentID string) (Result, error) {
	token, err := c.requireSession("Please login to delete comments")
	if err != nil {
		return Result{}, err
	}
	comment, ok := view.comment(commentID)
	if !ok {
		return Result{}, apperror.NewNotFoundError("Comment not found", nil)
	}
	if comment.Author.ID == "" || comment.Author.ID != c.sessions.UserID() {
		return Result{}, apperror.NewValidationError("You can only delete your own comments", nil)
	}

	return c.deleteConfirmed(ctx, commentID, PromptDeleteComment, view.Closed, func() error {
		return c.comments.Delete(ctx, token, commentID)
	}, func() {
		view.removeComment(commentID)
		c.notifier.Success("Comment deleted successfully")
	}, "Failed to delete comment")
}

// DeletePost deletes one of the viewer's own posts shown in list, after the
// user confirms. The post leaves the list only once the server has deleted it.
func (c *Controller) DeletePost(ctx context.Context, list *PostList, postID string) (Result, error) {
	token, err := c.requireSession("Please login to delete posts")
	if err != nil {
		return Result{}, err
	}
	post, ok := list.find(postID)
	if !ok {
		return Result{}, apperror.NewNotFoundError("Blog post not found", nil)
	}
	if !post.IsAuthor && !post.OwnedBy(c.sessions.UserID()) {
		return Result{}, apperror.NewValidationError("You can only delete your own posts", nil)
	}

	return c.deleteConfirmed(ctx, postID, PromptDeletePost, list.Closed, func() error {
		return c.posts.Delete(ctx, token, postID)
	}, func() {
		list.remove(postID)
		c.notifier.Success("Blog deleted successfully")
	}, "Failed to delete blog post")
}

// deleteConfirmed asks for confirmation, runs send once per key at a time and
// calls apply if the deletion succeeded while the caller's view is still open.
func (c *Controller) deleteConfirmed(ctx context.Context, key, prompt string, closed func() bool, send func() error, apply func(), fallback string) (Result, error) {
	yes, err := c.confirm.Confirm(ctx, prompt)
	if err != nil {
		return Result{}, err
	}
	if !yes {
		return Result{Declined: true}, nil
	}

	if !c.begin(c.deleting, key) {
		return Result{Ignored: true}, nil
	}
	defer c.end(c.deleting, key)

	generation := c.sessions.Generation()
	err = send()
	stale := closed() || c.sessions.Generation() != generation
	if err != nil {
		if stale {
			c.sessions.HandleUnauthorized(err)
			return Result{Stale: true}, nil
		}
		log.Printf("engagement: deleting %s failed: %v", key, err)
		c.fail(err, apperror.UserMessage(err, fallback))
		return Result{}, err
	}
	if stale {
		return Result{Stale: true}, nil
	}
	apply()
	return Result{}, nil
}

package engagement

import (
	"context"
	"log"

	"github.com/user/blogdesk-go/apperror"
	"github.com/user/blogdesk-go/comments"
)

// SubmitComment posts the draft as a comment on the post shown in view.
//
// The draft is validated first, so an empty or oversized body is rejected the
// same way with or without a session. One submission per post may be in
// flight; a second returns Result{Ignored: true}. On success the post is
// fetched again so the comment list carries the server's author data, and the
// draft is cleared. On failure the draft is kept. An Unauthorized answer to
// the refetch still ends the session even though the comment was saved.
func (c *Controller) SubmitComment(ctx context.Context, view *PostView, draft *Draft) (Result, error) {
	body, err := comments.Validate(draft.Body())
	if err != nil {
		c.notifier.Error(apperror.UserMessage(err, "Invalid comment"))
		return Result{}, err
	}
	token, err := c.requireSession("Please login to comment")
	if err != nil {
		return Result{}, err
	}

	postID := view.ID()
	if !c.begin(c.submitting, postID) {
		return Result{Ignored: true}, nil
	}
	defer c.end(c.submitting, postID)

	generation := c.sessions.Generation()
	created, err := c.comments.Add(ctx, token, postID, body)
	if err != nil {
		if view.Closed() || c.sessions.Generation() != generation {
			c.sessions.HandleUnauthorized(err)
			return Result{Stale: true}, nil
		}
		log.Printf("engagement: comment on %s failed: %v", postID, err)
		c.fail(err, apperror.UserMessage(err, "Failed to add comment"))
		return Result{}, err
	}

	refreshed, refetchErr := c.posts.Get(ctx, token, postID)
	if view.Closed() || c.sessions.Generation() != generation {
		if refetchErr != nil {
			c.sessions.HandleUnauthorized(refetchErr)
		}
		return Result{Stale: true}, nil
	}
	if refetchErr != nil {
		log.Printf("engagement: refreshing %s after comment: %v", postID, refetchErr)
		// The comment exists; show the one the server returned.
		view.prependComment(*created)
		draft.clear()
		if apperror.IsUnauthorizedError(refetchErr) {
			c.fail(refetchErr, "Comment added, but refreshing the post failed")
			return Result{}, refetchErr
		}
	} else {
		view.replace(*refreshed)
		draft.clear()
	}
	c.notifier.Success("Comment added successfully")
	return Result{}, nil
}

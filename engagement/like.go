package engagement

import (
	"context"
	"log"

	"github.com/user/blogdesk-go/apperror"
)

func errAuthRequired(message string) error {
	return apperror.NewAuthRequiredError(message)
}

// ToggleLike likes or unlikes the post shown in view.
//
// Without a session it fails with AuthRequired and sends nothing. While a like
// for the same post is pending it returns Result{Ignored: true}. Otherwise the
// flipped state is shown at once, then replaced by the server's values on
// success or by the exact pre-toggle state on failure. Failures are not retried.
func (c *Controller) ToggleLike(ctx context.Context, view *PostView) (Result, error) {
	token, err := c.requireSession("Please login to like posts")
	if err != nil {
		return Result{}, err
	}
	postID := view.ID()

	c.mu.Lock()
	if c.likes[postID].Pending {
		c.mu.Unlock()
		return Result{Ignored: true, Like: view.Like()}, nil
	}
	previous := view.Like()
	optimistic := previous.Flipped()
	c.likes[postID] = LikeStatus{Pending: true, Optimistic: optimistic, Previous: previous}
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.likes, postID)
		c.mu.Unlock()
	}()

	generation := c.sessions.Generation()
	view.setLike(optimistic)

	res, err := c.posts.ToggleLike(ctx, token, postID)

	if view.Closed() {
		if err != nil {
			c.sessions.HandleUnauthorized(err)
		}
		return Result{Stale: true, Like: previous}, nil
	}
	if c.sessions.Generation() != generation {
		// The session this like was sent for is gone; show the last confirmed state.
		view.setLike(previous)
		if err != nil {
			c.sessions.HandleUnauthorized(err)
		}
		return Result{Stale: true, Like: previous}, nil
	}

	if err != nil {
		view.setLike(previous)
		log.Printf("engagement: like on %s failed: %v", postID, err)
		c.fail(err, apperror.UserMessage(err, "Failed to like post"))
		return Result{Like: previous}, err
	}

	view.setLike(res.LikeState)
	message := res.Message
	if message == "" {
		message = "Like removed"
		if res.IsLiked {
			message = "Post liked"
		}
	}
	c.notifier.Success(message)
	return Result{Like: view.Like()}, nil
}

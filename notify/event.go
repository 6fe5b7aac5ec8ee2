// Package notify carries user-facing notifications (the "toasts" of the client)
// from the components that produce them to whatever front end displays them.
// Components depend on the small Notifier interface; the Bus fans every
// notification out to its subscribers.
package notify

import "time"

// Level classifies a notification for display.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notification is one message for the user.
type Notification struct {
	Level   Level
	Message string
	At      time.Time
}

// NewNotification creates a Notification stamped with the current time.
func NewNotification(level Level, message string) Notification {
	return Notification{Level: level, Message: message, At: time.Now()}
}

// Notifier is what components use to talk to the user.
type Notifier interface {
	Success(message string)
	Error(message string)
	Info(message string)
}

// Discard is a Notifier that drops everything.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Success(string) {}
func (discard) Error(string)   {}
func (discard) Info(string)    {}

package notify

import (
	"log"
	"sync"

	"github.com/google/uuid"
)

// subscriberBuffer is how many notifications a slow subscriber may fall behind
// before further ones are dropped for it.
const subscriberBuffer = 32

type subscriber struct {
	ch chan Notification
}

// Bus delivers notifications to every subscriber without ever blocking the
// publisher. A subscriber whose buffer is full misses the notification.
type Bus struct {
	subscribers map[string]*subscriber
	mu          sync.RWMutex
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string]*subscriber)}
}

// Subscribe registers a new subscriber and returns its id and a receive-only
// channel. The channel is closed by Unsubscribe.
func (b *Bus) Subscribe() (string, <-chan Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.NewString()
	s := &subscriber{ch: make(chan Notification, subscriberBuffer)}
	b.subscribers[id] = s
	return id, s.ch
}

// Unsubscribe removes the subscriber and closes its channel. Unknown ids are ignored.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s, ok := b.subscribers[id]; ok {
		close(s.ch)
		delete(b.subscribers, id)
	}
}

// Publish sends n to all current subscribers.
func (b *Bus) Publish(n Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, s := range b.subscribers {
		select {
		case s.ch <- n:
		default:
			log.Printf("notify: subscriber %s is not keeping up, dropped %q", id, n.Message)
		}
	}
}

// Subscribers returns the ids of the registered subscribers.
func (b *Bus) Subscribers() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := make([]string, 0, len(b.subscribers))
	for id := range b.subscribers {
		ids = append(ids, id)
	}
	return ids
}

func (b *Bus) Success(message string) { b.Publish(NewNotification(LevelSuccess, message)) }
func (b *Bus) Error(message string)   { b.Publish(NewNotification(LevelError, message)) }
func (b *Bus) Info(message string)    { b.Publish(NewNotification(LevelInfo, message)) }

// Recorder is a Notifier that keeps everything it is told, in order.
// Useful in tests and for front ends that print after an action completes.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) add(level Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, NewNotification(level, message))
}

func (r *Recorder) Success(message string) { r.add(LevelSuccess, message) }
func (r *Recorder) Error(message string)   { r.add(LevelError, message) }
func (r *Recorder) Info(message string)    { r.add(LevelInfo, message) }

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

// Last returns the most recent notification, if any.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Notification{}, false
	}
	return r.items[len(r.items)-1], true
}

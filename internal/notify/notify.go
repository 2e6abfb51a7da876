package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Level classifies a notification
type Level string

const (
	LevelSuccess Level = "success"
	LevelFailure Level = "failure"
)

// Notification is a user-visible, non-fatal message about one interaction
type Notification struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notifier surfaces the outcome of an interaction to the operator
type Notifier interface {
	Success(message string)
	Failure(message string, err error)
}

// Feed keeps the most recent notifications for the console to display
type Feed struct {
	mu    sync.Mutex
	limit int
	items []Notification
}

// NewFeed creates a feed retaining at most limit notifications
func NewFeed(limit int) *Feed {
	if limit <= 0 {
		limit = 50
	}
	return &Feed{limit: limit}
}

// Success records a success notification
func (f *Feed) Success(message string) {
	log.Info().Str("notification", message).Msg("Operator notified")
	f.add(Notification{Level: LevelSuccess, Message: message})
}

// Failure records a failure notification
func (f *Feed) Failure(message string, err error) {
	n := Notification{Level: LevelFailure, Message: message}
	if err != nil {
		n.Detail = err.Error()
	}
	log.Warn().Err(err).Str("notification", message).Msg("Operator notified of failure")
	f.add(n)
}

// Recent returns the retained notifications, newest last
func (f *Feed) Recent() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Notification(nil), f.items...)
}

// Count returns how many retained notifications have the given level
func (f *Feed) Count(level Level) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, item := range f.items {
		if item.Level == level {
			n++
		}
	}
	return n
}

func (f *Feed) add(n Notification) {
	n.ID = uuid.NewString()
	n.CreatedAt = time.Now()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, n)
	if over := len(f.items) - f.limit; over > 0 {
		f.items = append([]Notification(nil), f.items[over:]...)
	}
}

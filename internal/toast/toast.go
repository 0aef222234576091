// Package toast is the notification surface: short, transient success and
// error messages shown to the user without blocking the page.
package toast

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Level is the kind of a toast.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// DefaultQueueSize bounds how many undelivered toasts a queue keeps.
const DefaultQueueSize = 20

// Toast is a single notification.
type Toast struct {
	ID        uuid.UUID `json:"id"`
	Level     Level     `json:"level"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier is the capability used by callers that want to tell the user something.
type Notifier interface {
	NotifySuccess(text string)
	NotifyError(text string)
}

// Queue collects toasts for one browser session until the page drains them.
// When full, the oldest toast is dropped.
type Queue struct {
	mu    sync.Mutex
	items []Toast
	max   int
}

var _ Notifier = (*Queue)(nil)

// NewQueue creates a queue holding at most max toasts; max <= 0 uses DefaultQueueSize.
func NewQueue(max int) *Queue {
	if max <= 0 {
		max = DefaultQueueSize
	}
	return &Queue{max: max}
}

func (q *Queue) NotifySuccess(text string) { q.push(LevelSuccess, text) }

func (q *Queue) NotifyError(text string) { q.push(LevelError, text) }

func (q *Queue) push(level Level, text string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, Toast{
		ID:        uuid.New(),
		Level:     level,
		Text:      text,
		CreatedAt: time.Now(),
	})
	if over := len(q.items) - q.max; over > 0 {
		q.items = q.items[over:]
	}
}

// Drain returns the pending toasts in arrival order and empties the queue.
func (q *Queue) Drain() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.items
	q.items = nil
	return out
}

// Len reports the number of pending toasts.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// LogNotifier writes toasts to a zap logger.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier that only logs.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifySuccess(text string) {
	n.logger.Info("Toast", zap.String("level", string(LevelSuccess)), zap.String("text", text))
}

func (n *LogNotifier) NotifyError(text string) {
	n.logger.Warn("Toast", zap.String("level", string(LevelError)), zap.String("text", text))
}

type multi []Notifier

// Multi fans every notification out to all non-nil notifiers in order.
func Multi(notifiers ...Notifier) Notifier {
	var m multi
	for _, n := range notifiers {
		if n != nil {
			m = append(m, n)
		}
	}
	return m
}

func (m multi) NotifySuccess(text string) {
	for _, n := range m {
		n.NotifySuccess(text)
	}
}

func (m multi) NotifyError(text string) {
	for _, n := range m {
		n.NotifyError(text)
	}
}

// Discard drops every notification.
var Discard Notifier = multi(nil)

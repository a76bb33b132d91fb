// Package notify delivers operator notifications to a chat platform.
//
// Rendering and delivery are split: formatting produces a Message, an Adapter
// (for example the Telegram one) performs the actual platform calls, and the
// Service keeps a small in-memory history of recently emitted notifications
// for debugging and operator visibility. Delivery is at-most-one-attempt,
// fire-and-forget.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/susaninz/geosite-manager/errors"
	"github.com/susaninz/geosite-manager/logging"
)

// maxHistory is the cap for the in-memory notification history.
const maxHistory = 50

// Button is one inline keyboard button.
type Button struct {
	Text string `json:"text"`
	// CallbackData is sent back by the chat platform when the button is
	// pressed.
	CallbackData string `json:"callback_data"`
}

// Message is one rendered notification.
type Message struct {
	// Text is the HTML-formatted message body.
	Text string
	// Keyboard holds the inline keyboard rows, if any.
	Keyboard [][]Button
}

// Adapter performs the actual chat platform calls.
type Adapter interface {
	// SendMessage sends the given message to the configured chat.
	SendMessage(ctx context.Context, message Message) error
	// EditMessage replaces an existing message.
	EditMessage(ctx context.Context, chatID string, messageID int64, message Message) error
	// EditReplyMarkup replaces only the inline keyboard of an existing message,
	// leaving its text untouched.
	EditReplyMarkup(ctx context.Context, chatID string, messageID int64, keyboard [][]Button) error
	// AnswerCallback acknowledges a pressed inline keyboard button.
	AnswerCallback(ctx context.Context, callbackID string, text string) error
}

// Record is one entry of the notification history.
type Record struct {
	ID        uuid.UUID `json:"id"`
	SentAt    time.Time `json:"sent_at"`
	Text      string    `json:"text"`
	Delivered bool      `json:"delivered"`
}

// Service sends notifications via an Adapter and records them.
type Service struct {
	adapter Adapter

	mu      sync.Mutex
	history []Record
	// now is the clock for history records. Overridable in tests.
	now func() time.Time
}

// NewService creates a Service using the given Adapter.
func NewService(adapter Adapter) *Service {
	return &Service{
		adapter: adapter,
		now:     time.Now,
	}
}

// Notify sends the given message. Failures are logged, not returned: delivery
// is fire-and-forget and never blocks the caller on retries.
func (s *Service) Notify(ctx context.Context, message Message) {
	err := s.adapter.SendMessage(ctx, message)
	if err != nil {
		errors.Log(logging.NotifyLogger, errors.Wrap(err, "send notification", errors.Details{
			"text": message.Text,
		}))
	}
	s.record(message, err == nil)
}

func (s *Service) record(message Message, delivered bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, Record{
		ID:        uuid.New(),
		SentAt:    s.now(),
		Text:      message.Text,
		Delivered: delivered,
	})
	if overflow := len(s.history) - maxHistory; overflow > 0 {
		s.history = s.history[overflow:]
	}
}

// Recent returns up to n history records, most recent first.
func (s *Service) Recent(n int) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > len(s.history) {
		n = len(s.history)
	}
	records := make([]Record, 0, n)
	for i := len(s.history) - 1; i >= len(s.history)-n; i-- {
		records = append(records, s.history[i])
	}
	return records
}

// Adapter returns the underlying Adapter for callers that need to answer
// callbacks or edit messages directly.
func (s *Service) Adapter() Adapter {
	return s.adapter
}

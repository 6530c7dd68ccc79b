// Package notificationtest provides an in-memory Dispatcher for tests.
package notificationtest

import (
	"context"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/slotwise/internal/notification/domain"
)

type Recorder struct {
	mu       sync.Mutex
	messages []domain.Message
	failures int

	// SendErr, when set, is returned by Send and the message is not recorded.
	SendErr error
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Notify(ctx context.Context, msg domain.Message) {
	_ = r.Send(ctx, msg)
}

func (r *Recorder) Send(_ context.Context, msg domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SendErr != nil {
		r.failures++
		return r.SendErr
	}
	r.messages = append(r.messages, msg)
	return nil
}

func (r *Recorder) SetSendErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.SendErr = err
}

func (r *Recorder) Messages() []domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Message, len(r.messages))
	copy(out, r.messages)
	return out
}

func (r *Recorder) Count(template domain.Template) int {
	return len(r.Filter(template, 0))
}

func (r *Recorder) CountFor(template domain.Template, userID snowflake.ID) int {
	return len(r.Filter(template, userID))
}

// Filter returns recorded messages for template, optionally narrowed to a recipient.
func (r *Recorder) Filter(template domain.Template, userID snowflake.ID) []domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Message
	for _, m := range r.messages {
		if m.Template != template {
			continue
		}
		if userID != 0 && m.Recipient.UserID != userID {
			continue
		}
		out = append(out, m)
	}
	return out
}

func (r *Recorder) Failures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
	r.failures = 0
}

var _ domain.Dispatcher = (*Recorder)(nil)

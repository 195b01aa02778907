package notify

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Kind selects the email template.
type Kind string

const (
	KindOTP       Kind = "otp"
	KindMagicLink Kind = "magic_link"
	KindInvite    Kind = "invite"
	KindReset     Kind = "reset"
)

// Data keys understood by the built-in templates.
const (
	DataCode      = "code"
	DataLink      = "link"
	DataName      = "name"
	DataInviter   = "inviter"
	DataRole      = "role"
	DataExpiresIn = "expires_in"
)

// Message is one outbound email.
type Message struct {
	Kind      Kind              `json:"kind"`
	To        string            `json:"to"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// NoOpSender discards messages.
type NoOpSender struct{}

func (NoOpSender) Send(context.Context, Message) error { return nil }

// JSONWriter writes one JSON object per line.
type JSONWriter struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{writer: w}
}

func (s *JSONWriter) Send(ctx context.Context, msg Message) error {
	if s == nil || s.writer == nil {
		return nil
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.writer.Write(data); err != nil {
		return err
	}
	_, err = s.writer.Write([]byte("\n"))
	return err
}

// Recorder keeps every message in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) Send(ctx context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return nil
}

// Messages returns a copy of everything recorded so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Last returns the most recent message of kind sent to addr.
func (r *Recorder) Last(kind Kind, addr string) (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.messages) - 1; i >= 0; i-- {
		m := r.messages[i]
		if m.Kind == kind && m.To == addr {
			return m, true
		}
	}
	return Message{}, false
}

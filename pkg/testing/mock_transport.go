package testing

import (
	"sync"

	"github.com/google/uuid"

	"github.com/gabrielmiguelok/kudos/pkg/core"
)

// MockTransport is a core.Transport that records what a socket pushes.
type MockTransport struct {
	ID string

	mu     sync.Mutex
	sent   []core.Message
	closed bool
	err    error
}

// NewMockTransport creates a connected transport.
func NewMockTransport() *MockTransport {
	return &MockTransport{ID: "test-" + uuid.NewString()[:8]}
}

// Send records msg, or returns the error set with SetError.
func (m *MockTransport) Send(msg core.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.closed {
		return core.ErrSocketClosed
	}
	m.sent = append(m.sent, msg)
	return nil
}

// Close implements core.Transport.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// IsConnected implements core.Transport.
func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// SetError makes every later Send fail with err. Nil clears it.
func (m *MockTransport) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Sent returns a copy of the recorded messages.
func (m *MockTransport) Sent() []core.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Message, len(m.sent))
	copy(out, m.sent)
	return out
}

// SentEvents returns the event names of the recorded messages.
func (m *MockTransport) SentEvents() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sent))
	for i, msg := range m.sent {
		out[i] = msg.Event
	}
	return out
}

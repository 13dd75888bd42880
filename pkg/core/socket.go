package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Socket errors.
var (
	ErrSocketClosed = errors.New("socket is closed")
	ErrSendFailed   = errors.New("failed to send message")
	ErrMailboxFull  = errors.New("info mailbox full")
)

// DefaultMailboxSize is the number of pending info messages a socket holds.
const DefaultMailboxSize = 16

// Transport is what a Socket writes to.
type Transport interface {
	Send(msg Message) error
	Close() error
	IsConnected() bool
}

// Message is a server push.
type Message struct {
	Ref     string
	Topic   string
	Event   string
	Payload map[string]any
}

// Socket connects one mounted component to its client. Besides pushing
// to the client it carries the component's info mailbox: messages sent
// with SendInfo are delivered to HandleInfo on the session goroutine.
type Socket struct {
	id        string
	transport Transport

	connected   bool
	connectedAt time.Time

	lastActivity atomic.Int64

	info    chan any
	closeCh chan struct{}

	mu sync.RWMutex
}

// NewSocket creates a connected socket.
func NewSocket(id string, transport Transport) *Socket {
	now := time.Now()
	s := &Socket{
		id:          id,
		transport:   transport,
		connected:   true,
		connectedAt: now,
		info:        make(chan any, DefaultMailboxSize),
		closeCh:     make(chan struct{}),
	}
	s.lastActivity.Store(now.UnixNano())
	return s
}

// ID returns the socket id.
func (s *Socket) ID() string {
	return s.id
}

// Topic returns the channel name clients join.
func (s *Socket) Topic() string {
	return "lv:" + s.id
}

// IsConnected reports whether the socket and its transport are open.
func (s *Socket) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected && s.transport != nil && s.transport.IsConnected()
}

// ConnectedAt returns when the socket was created.
func (s *Socket) ConnectedAt() time.Time {
	return s.connectedAt
}

// LastActivity returns the time of the last send or client frame.
func (s *Socket) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

// UpdateActivity records client activity.
func (s *Socket) UpdateActivity() {
	s.lastActivity.Store(time.Now().UnixNano())
}

// Send pushes msg to the client.
func (s *Socket) Send(msg Message) error {
	s.mu.RLock()
	connected := s.connected
	transport := s.transport
	s.mu.RUnlock()

	if !connected || transport == nil || !transport.IsConnected() {
		return ErrSocketClosed
	}

	s.lastActivity.Store(time.Now().UnixNano())

	if err := transport.Send(msg); err != nil {
		s.mu.RLock()
		stillConnected := s.connected
		s.mu.RUnlock()
		if !stillConnected {
			return ErrSocketClosed
		}
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	return nil
}

// Push sends an event on the socket's topic.
func (s *Socket) Push(event string, payload map[string]any) error {
	return s.Send(Message{
		Topic:   s.Topic(),
		Event:   event,
		Payload: payload,
	})
}

// SendInfo queues msg for the component's HandleInfo. It never blocks; a
// full mailbox returns ErrMailboxFull and a closed socket ErrSocketClosed.
// Safe to call from any goroutine.
func (s *Socket) SendInfo(msg any) error {
	select {
	case <-s.closeCh:
		return ErrSocketClosed
	default:
	}

	select {
	case s.info <- msg:
		return nil
	case <-s.closeCh:
		return ErrSocketClosed
	default:
		return ErrMailboxFull
	}
}

// Info returns the mailbox read by the session loop.
func (s *Socket) Info() <-chan any {
	return s.info
}

// Done is closed when the socket is closed.
func (s *Socket) Done() <-chan struct{} {
	return s.closeCh
}

// Close closes the socket and its transport. Later SendInfo calls fail.
func (s *Socket) Close() error {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return nil
	}
	s.connected = false
	close(s.closeCh)
	transport := s.transport
	s.mu.Unlock()

	if transport != nil {
		return transport.Close()
	}
	return nil
}

// SocketManager tracks live sockets.
type SocketManager struct {
	sockets map[string]*Socket
	mu      sync.RWMutex
}

// NewSocketManager creates an empty manager.
func NewSocketManager() *SocketManager {
	return &SocketManager{
		sockets: make(map[string]*Socket),
	}
}

func (sm *SocketManager) Add(socket *Socket) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.sockets[socket.ID()] = socket
}

func (sm *SocketManager) Remove(id string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sockets, id)
}

func (sm *SocketManager) Get(id string) (*Socket, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	s, ok := sm.sockets[id]
	return s, ok
}

func (sm *SocketManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sockets)
}

// All returns a snapshot of the live sockets.
func (sm *SocketManager) All() []*Socket {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	out := make([]*Socket, 0, len(sm.sockets))
	for _, s := range sm.sockets {
		out = append(out, s)
	}
	return out
}

// CloseAll closes every socket. It stops early if ctx is done.
func (sm *SocketManager) CloseAll(ctx context.Context) error {
	var errs []error
	for _, s := range sm.All() {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close socket %s: %w", s.ID(), err))
		}
		sm.Remove(s.ID())
	}
	return errors.Join(errs...)
}

package router

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/gabrielmiguelok/kudos/pkg/core"
	"github.com/gabrielmiguelok/kudos/pkg/limits"
	"github.com/gabrielmiguelok/kudos/pkg/logging"
	"github.com/gabrielmiguelok/kudos/pkg/metrics"
	"github.com/gabrielmiguelok/kudos/pkg/pool"
	"github.com/gabrielmiguelok/kudos/pkg/protocol"
)

// frameSender is the part of the transport a session writes to and reads
// from.
type frameSender interface {
	Send(msg *protocol.Message) error
	Receive() <-chan *protocol.Message
	Done() <-chan struct{}
}

// LiveSession is one mounted component bound to one WebSocket. Every
// callback into the component runs on the session's own goroutine.
type LiveSession struct {
	ID        string
	Component core.Component
	Socket    *core.Socket
	Params    core.Params
	Session   core.Session
	CreatedAt time.Time

	conn     frameSender
	logger   logging.Logger
	metrics  *metrics.Metrics
	timeouts core.TimeoutConfig
	events   *limits.Bucket
	cancel   context.CancelFunc

	// Loop-owned; not touched from other goroutines.
	mounted  bool
	topic    string
	version  uint64
	lastHash uint64

	terminateOnce sync.Once
}

func (s *LiveSession) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// run serves frames and info messages until the client leaves, the
// connection drops, the session idles out or ctx is cancelled.
func (s *LiveSession) run(ctx context.Context) (reason core.TerminateReason) {
	defer func() {
		if rec := recover(); rec != nil {
			s.metrics.Error("panic")
			s.logger.Error("live session panicked", logging.Any("panic", rec))
			reason = core.TerminateError
		}
	}()

	idle := time.NewTimer(s.timeouts.SessionIdle)
	defer idle.Stop()

	for {
		select {
		case msg := <-s.conn.Receive():
			s.Socket.UpdateActivity()
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(s.timeouts.SessionIdle)
			if s.handleFrame(ctx, msg) {
				return core.TerminateNormal
			}

		case info := <-s.Socket.Info():
			s.handleInfo(ctx, info)

		case <-idle.C:
			s.logger.Info("live session idle")
			return core.TerminateTimeout

		case <-s.conn.Done():
			return core.TerminateNormal

		case <-ctx.Done():
			return core.TerminateShutdown
		}
	}
}

// handleFrame processes one client frame and reports whether the client
// left.
func (s *LiveSession) handleFrame(ctx context.Context, msg *protocol.Message) bool {
	switch msg.Event {
	case protocol.EventHeartbeat:
		s.reply(protocol.OkReply(msg.Ref, msg.Topic, nil))

	case protocol.EventJoin:
		s.join(ctx, msg)

	case protocol.EventLeave:
		return true

	default:
		s.handleEvent(ctx, msg)
	}
	return false
}

func (s *LiveSession) join(ctx context.Context, msg *protocol.Message) {
	s.topic = msg.Topic

	if !s.mounted {
		mctx, cancel := s.withTimeout(ctx, s.timeouts.ComponentMount)
		err := s.Component.Mount(mctx, s.Params, s.Session)
		cancel()
		if err != nil {
			s.metrics.Error("mount")
			s.logger.Error("mount failed", logging.Err(err))
			s.reply(protocol.ErrorReply(msg.Ref, msg.Topic, err.Error()))
			return
		}
		s.mounted = true
		s.logger.Debug("component mounted", logging.String("component", s.Component.Name()))
	}

	html, err := s.render(ctx)
	if err != nil {
		s.reply(protocol.ErrorReply(msg.Ref, msg.Topic, err.Error()))
		return
	}
	s.version++
	s.lastHash = hashHTML(html)
	s.reply(protocol.OkReply(msg.Ref, msg.Topic, map[string]any{
		"rendered": map[string]any{"s": []string{html}},
		"v":        s.version,
	}))
}

func (s *LiveSession) handleEvent(ctx context.Context, msg *protocol.Message) {
	if !s.mounted {
		s.reply(protocol.ErrorReply(msg.Ref, msg.Topic, ErrNotJoined.Error()))
		return
	}
	if !s.events.Allow() {
		s.metrics.Error("rate_limited")
		s.reply(protocol.ErrorReply(msg.Ref, msg.Topic, limits.ErrRateLimited.Error()))
		return
	}

	s.metrics.Event(msg.Event)
	payload := msg.Payload
	if payload == nil {
		payload = map[string]any{}
	}

	ectx, cancel := s.withTimeout(ctx, s.timeouts.ComponentEvent)
	err := s.Component.HandleEvent(ectx, msg.Event, payload)
	cancel()
	if err != nil {
		s.metrics.Error("event")
		s.logger.Warn("event rejected", logging.String("event", msg.Event), logging.Err(err))
		s.reply(protocol.ErrorReply(msg.Ref, msg.Topic, err.Error()))
		return
	}

	s.reply(protocol.OkReply(msg.Ref, msg.Topic, nil))
	s.push(ctx)
}

func (s *LiveSession) handleInfo(ctx context.Context, info any) {
	if !s.mounted {
		return
	}
	ictx, cancel := s.withTimeout(ctx, s.timeouts.ComponentEvent)
	err := s.Component.HandleInfo(ictx, info)
	cancel()
	if err != nil {
		s.metrics.Error("info")
		s.logger.Warn("info rejected", logging.String("info", fmt.Sprintf("%T", info)), logging.Err(err))
		return
	}
	s.push(ctx)
}

// push sends a fresh render if the view changed since the last one sent.
func (s *LiveSession) push(ctx context.Context) {
	html, err := s.render(ctx)
	if err != nil {
		return
	}
	h := hashHTML(html)
	if h == s.lastHash {
		return
	}
	s.lastHash = h
	s.version++
	s.reply(protocol.RenderMessage(s.topicOrDefault(), s.version, html))
}

func (s *LiveSession) render(ctx context.Context) (string, error) {
	start := time.Now()
	renderer := s.Component.Render(ctx)
	if renderer == nil {
		s.metrics.Error("render")
		return "", ErrNilRenderer
	}

	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)
	if err := renderer.Render(ctx, buf); err != nil {
		s.metrics.Error("render")
		s.logger.Error("render failed", logging.Err(err))
		return "", fmt.Errorf("render %s: %w", s.Component.Name(), err)
	}
	s.metrics.Rendered(time.Since(start))
	return buf.String(), nil
}

func (s *LiveSession) reply(msg *protocol.Message) {
	if err := s.conn.Send(msg); err != nil {
		s.logger.Debug("send failed", logging.String("event", msg.Event), logging.Err(err))
	}
}

func (s *LiveSession) topicOrDefault() string {
	if s.topic != "" {
		return s.topic
	}
	return s.Socket.Topic()
}

// terminate tells the component it is going away and closes the socket.
// Only the first call has an effect.
func (s *LiveSession) terminate(reason core.TerminateReason) {
	s.terminateOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeouts.ComponentEvent)
		defer cancel()
		if err := s.Component.Terminate(ctx, reason); err != nil {
			s.logger.Warn("terminate failed", logging.Err(err))
		}
		s.Socket.Close()
		s.logger.Info("live session closed",
			logging.String("reason", reason.String()),
			logging.Duration("lifetime", time.Since(s.CreatedAt)),
		)
	})
}

func hashHTML(html string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(html))
	return h.Sum64()
}

// SessionManager tracks live sessions by id.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*LiveSession
}

// NewSessionManager creates an empty manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{sessions: make(map[string]*LiveSession)}
}

// Add registers s.
func (m *SessionManager) Add(s *LiveSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
}

// Remove forgets the session with id.
func (m *SessionManager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Get returns the session with id.
func (m *SessionManager) Get(id string) (*LiveSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Count returns the number of live sessions.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// All snapshots the live sessions.
func (m *SessionManager) All() []*LiveSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*LiveSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

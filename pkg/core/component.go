// Package core defines live view components and the socket that connects a
// mounted component to its browser.
package core

import (
	"context"
	"io"
)

// Component is a stateful server-side view. The router mounts it, feeds it
// browser events and internal messages on a single goroutine, and renders
// it after each one.
type Component interface {
	// Name identifies the component type in logs.
	Name() string

	// Mount initialises state from the connection parameters.
	Mount(ctx context.Context, params Params, session Session) error

	// Render returns the current view.
	Render(ctx context.Context) Renderer

	// HandleEvent processes a browser event such as a click or a change.
	HandleEvent(ctx context.Context, event string, payload map[string]any) error

	// HandleInfo processes a message sent with Socket.SendInfo, typically
	// from a timer.
	HandleInfo(ctx context.Context, msg any) error

	// Terminate releases anything bound to the component's lifetime.
	Terminate(ctx context.Context, reason TerminateReason) error
}

// Renderer writes HTML.
type Renderer interface {
	Render(ctx context.Context, w io.Writer) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, w io.Writer) error

func (f RendererFunc) Render(ctx context.Context, w io.Writer) error {
	return f(ctx, w)
}

// Params holds the query parameters of the connection.
type Params map[string]string

// Get returns a parameter or "".
func (p Params) Get(key string) string {
	return p[key]
}

// GetDefault returns a parameter or def when absent.
func (p Params) GetDefault(key, def string) string {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Session holds per-request data such as the request id and cookies.
type Session map[string]any

// GetString returns a session value as a string.
func (s Session) GetString(key string) string {
	v, _ := s[key].(string)
	return v
}

// TerminateReason says why a component is going away.
type TerminateReason int

const (
	TerminateNormal TerminateReason = iota
	TerminateShutdown
	TerminateError
	TerminateTimeout
)

func (r TerminateReason) String() string {
	switch r {
	case TerminateNormal:
		return "normal"
	case TerminateShutdown:
		return "shutdown"
	case TerminateError:
		return "error"
	case TerminateTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// BaseComponent provides no-op lifecycle methods and the socket wiring.
// Embed it and override what you need.
type BaseComponent struct {
	socket *Socket
}

// SetSocket is called by the router before Mount on live connections.
// Static renders never get a socket.
func (bc *BaseComponent) SetSocket(s *Socket) {
	bc.socket = s
}

// Socket returns the live socket, or nil on a static render.
func (bc *BaseComponent) Socket() *Socket {
	return bc.socket
}

func (bc *BaseComponent) Name() string { return "" }

func (bc *BaseComponent) Mount(ctx context.Context, params Params, session Session) error {
	return nil
}

func (bc *BaseComponent) HandleEvent(ctx context.Context, event string, payload map[string]any) error {
	return nil
}

func (bc *BaseComponent) HandleInfo(ctx context.Context, msg any) error {
	return nil
}

func (bc *BaseComponent) Terminate(ctx context.Context, reason TerminateReason) error {
	return nil
}

// Package testing drives live view components without a browser or a
// WebSocket. Events and info messages are dispatched on the calling
// goroutine, the way the router's session loop does.
package testing

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabrielmiguelok/kudos/pkg/core"
	"github.com/gabrielmiguelok/kudos/pkg/pool"
)

// LiveViewTest is a mounted component under test.
type LiveViewTest struct {
	t         *testing.T
	ctx       context.Context
	component core.Component
	transport *MockTransport
	socket    *core.Socket
	rendered  string
	renders   int

	params  core.Params
	session core.Session
	static  bool
}

// MountOption configures Mount.
type MountOption func(*LiveViewTest)

// WithParams sets the mount parameters.
func WithParams(params core.Params) MountOption {
	return func(lvt *LiveViewTest) { lvt.params = params }
}

// WithSession sets the mount session.
func WithSession(session core.Session) MountOption {
	return func(lvt *LiveViewTest) { lvt.session = session }
}

// Static mounts without a socket, like a plain page load.
func Static() MountOption {
	return func(lvt *LiveViewTest) { lvt.static = true }
}

// Mount wires comp to a mock socket, mounts and renders it. The component
// is terminated when the test ends.
func Mount(t *testing.T, comp core.Component, opts ...MountOption) *LiveViewTest {
	t.Helper()

	lvt := &LiveViewTest{
		t:         t,
		component: comp,
		transport: NewMockTransport(),
		params:    core.Params{},
		session:   core.Session{},
	}
	for _, opt := range opts {
		opt(lvt)
	}

	var socket *core.Socket
	if !lvt.static {
		socket = core.NewSocket(lvt.transport.ID, lvt.transport)
		lvt.socket = socket
		if setter, ok := comp.(interface{ SetSocket(*core.Socket) }); ok {
			setter.SetSocket(socket)
		}
	}
	lvt.ctx = core.BuildContext(context.Background(), socket, lvt.session, lvt.params)

	require.NoError(t, comp.Mount(lvt.ctx, lvt.params, lvt.session), "mount")
	lvt.render()

	t.Cleanup(func() {
		lvt.Terminate(core.TerminateNormal)
	})
	return lvt
}

// Event dispatches a browser event and re-renders. It fails the test if
// the component rejects the event.
func (lvt *LiveViewTest) Event(name string, payload map[string]any) *LiveViewTest {
	lvt.t.Helper()
	require.NoError(lvt.t, lvt.EventErr(name, payload), "event %q", name)
	return lvt
}

// EventErr dispatches a browser event and returns the component's error.
// The view is only re-rendered on success.
func (lvt *LiveViewTest) EventErr(name string, payload map[string]any) error {
	lvt.t.Helper()
	if payload == nil {
		payload = map[string]any{}
	}
	if err := lvt.component.HandleEvent(lvt.ctx, name, payload); err != nil {
		return err
	}
	lvt.render()
	return nil
}

// Click dispatches a click bound to event.
func (lvt *LiveViewTest) Click(event string) *LiveViewTest {
	lvt.t.Helper()
	return lvt.Event(event, nil)
}

// Change dispatches a change of field to value.
func (lvt *LiveViewTest) Change(field, value string) *LiveViewTest {
	lvt.t.Helper()
	return lvt.Event("change", map[string]any{"field": field, "value": value})
}

// SendInfo delivers msg to HandleInfo directly and re-renders.
func (lvt *LiveViewTest) SendInfo(msg any) *LiveViewTest {
	lvt.t.Helper()
	require.NoError(lvt.t, lvt.component.HandleInfo(lvt.ctx, msg), "info %T", msg)
	lvt.render()
	return lvt
}

// DrainInfo delivers every message waiting in the socket mailbox and
// returns how many there were.
func (lvt *LiveViewTest) DrainInfo() int {
	lvt.t.Helper()
	n := 0
	for {
		select {
		case msg := <-lvt.mailbox():
			lvt.SendInfo(msg)
			n++
		default:
			return n
		}
	}
}

// AwaitInfo waits up to timeout for a mailbox message and delivers it.
func (lvt *LiveViewTest) AwaitInfo(timeout time.Duration) *LiveViewTest {
	lvt.t.Helper()
	select {
	case msg := <-lvt.mailbox():
		return lvt.SendInfo(msg)
	case <-time.After(timeout):
		lvt.t.Fatalf("no info message within %s", timeout)
	}
	return lvt
}

func (lvt *LiveViewTest) mailbox() <-chan any {
	require.NotNil(lvt.t, lvt.socket, "static mounts have no mailbox")
	return lvt.socket.Info()
}

// Terminate ends the component. Later calls do nothing.
func (lvt *LiveViewTest) Terminate(reason core.TerminateReason) {
	if lvt.component == nil {
		return
	}
	comp := lvt.component
	lvt.component = nil
	comp.Terminate(context.Background(), reason)
	if lvt.socket != nil {
		lvt.socket.Close()
	}
}

func (lvt *LiveViewTest) render() {
	lvt.t.Helper()
	renderer := lvt.component.Render(lvt.ctx)
	require.NotNil(lvt.t, renderer, "render returned nil")

	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)
	require.NoError(lvt.t, renderer.Render(lvt.ctx, buf), "render")
	lvt.rendered = buf.String()
	lvt.renders++
}

// Rendered returns the latest render.
func (lvt *LiveViewTest) Rendered() string {
	return lvt.rendered
}

// Renders returns how many times the view was rendered.
func (lvt *LiveViewTest) Renders() int {
	return lvt.renders
}

// Socket returns the socket the component was given, nil for Static.
func (lvt *LiveViewTest) Socket() *core.Socket {
	return lvt.socket
}

// Transport returns the mock behind the socket.
func (lvt *LiveViewTest) Transport() *MockTransport {
	return lvt.transport
}

// AssertText asserts the view contains text.
func (lvt *LiveViewTest) AssertText(text string) *LiveViewTest {
	lvt.t.Helper()
	assert.Contains(lvt.t, lvt.rendered, text)
	return lvt
}

// AssertNoText asserts the view does not contain text.
func (lvt *LiveViewTest) AssertNoText(text string) *LiveViewTest {
	lvt.t.Helper()
	assert.NotContains(lvt.t, lvt.rendered, text)
	return lvt
}

// AssertElement asserts some <tag> opening tag carries every attr, each
// given as it appears in the markup, e.g. `name="email"`.
func (lvt *LiveViewTest) AssertElement(tag string, attrs ...string) *LiveViewTest {
	lvt.t.Helper()
	if !HasElement(lvt.rendered, tag, attrs...) {
		lvt.t.Errorf("no <%s> with %s in:\n%s", tag, strings.Join(attrs, " "), lvt.rendered)
	}
	return lvt
}

// AssertNoElement asserts no <tag> opening tag carries every attr.
func (lvt *LiveViewTest) AssertNoElement(tag string, attrs ...string) *LiveViewTest {
	lvt.t.Helper()
	if HasElement(lvt.rendered, tag, attrs...) {
		lvt.t.Errorf("unexpected <%s> with %s", tag, strings.Join(attrs, " "))
	}
	return lvt
}

// HasElement reports whether html has a <tag> opening tag containing every
// attr.
func HasElement(html, tag string, attrs ...string) bool {
	open := "<" + tag
	rest := html
	for {
		i := strings.Index(rest, open)
		if i < 0 {
			return false
		}
		rest = rest[i+len(open):]
		if rest == "" {
			return false
		}
		if c := rest[0]; c != ' ' && c != '>' && c != '/' && c != '\n' && c != '\t' {
			continue
		}
		end := strings.IndexByte(rest, '>')
		if end < 0 {
			return false
		}
		if hasAll(rest[:end], attrs) {
			return true
		}
	}
}

func hasAll(s string, parts []string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}

// Count returns how many times text occurs in the view.
func (lvt *LiveViewTest) Count(text string) int {
	return strings.Count(lvt.rendered, text)
}

func (lvt *LiveViewTest) String() string {
	return fmt.Sprintf("LiveViewTest(%d renders)", lvt.renders)
}

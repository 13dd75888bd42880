package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabrielmiguelok/kudos/pkg/core"
)

type greeter struct {
	core.BaseComponent
	name       string
	pings      int
	terminated bool
}

func (g *greeter) Mount(ctx context.Context, params core.Params, session core.Session) error {
	g.name = params.GetDefault("name", "world")
	return nil
}

func (g *greeter) Render(ctx context.Context) core.Renderer {
	return core.RendererFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<p class="hello" data-pings="%d">hello %s</p><input name="name" value="%s">`, g.pings, g.name, g.name)
		return err
	})
}

func (g *greeter) HandleEvent(ctx context.Context, event string, payload map[string]any) error {
	switch event {
	case "change":
		g.name, _ = payload["value"].(string)
	case "ping":
		if s := g.Socket(); s != nil {
			s.SendInfo("pong")
		}
	default:
		return errors.New("unknown event")
	}
	return nil
}

func (g *greeter) HandleInfo(ctx context.Context, msg any) error {
	g.pings++
	return nil
}

func (g *greeter) Terminate(ctx context.Context, reason core.TerminateReason) error {
	g.terminated = true
	return nil
}

func TestLiveViewTest(t *testing.T) {
	g := &greeter{}
	lvt := Mount(t, g, WithParams(core.Params{"name": "ann"}))

	lvt.AssertText("hello ann").
		AssertElement("input", `name="name"`, `value="ann"`).
		AssertNoElement("input", `value="bob"`)

	lvt.Change("name", "bob").AssertText("hello bob")
	assert.Error(t, lvt.EventErr("bogus", nil))

	lvt.Click("ping")
	assert.Equal(t, 1, lvt.DrainInfo())
	lvt.AssertElement("p", `data-pings="1"`)
	assert.Zero(t, lvt.DrainInfo())

	assert.Equal(t, 4, lvt.Renders())
	require.NotNil(t, lvt.Socket())

	lvt.Terminate(core.TerminateShutdown)
	assert.True(t, g.terminated)
	assert.False(t, lvt.Transport().IsConnected())
}

func TestLiveViewTest_Static(t *testing.T) {
	lvt := Mount(t, &greeter{}, Static())
	assert.Nil(t, lvt.Socket())
	lvt.AssertText("hello world")
}

func TestHasElement(t *testing.T) {
	html := `<div id="a"><divider class="x"></divider><div class="b c"></div></div>`
	assert.True(t, HasElement(html, "div", `class="b c"`))
	assert.False(t, HasElement(html, "div", `class="x"`), "prefix tag names do not match")
	assert.True(t, HasElement(html, "divider"))
	assert.False(t, HasElement(html, "span"))
}

func TestMockTransport(t *testing.T) {
	m := NewMockTransport()
	s := core.NewSocket(m.ID, m)

	require.NoError(t, s.Push("render", map[string]any{"f": "x"}))
	assert.Equal(t, []string{"render"}, m.SentEvents())

	m.SetError(errors.New("down"))
	assert.ErrorIs(t, s.Push("render", nil), core.ErrSendFailed)
	m.SetError(nil)

	s.Close()
	assert.ErrorIs(t, s.Push("render", nil), core.ErrSocketClosed)
	assert.Len(t, m.Sent(), 1)
}

package router

import (
	"github.com/gabrielmiguelok/kudos/pkg/core"
	"github.com/gabrielmiguelok/kudos/pkg/protocol"
	"github.com/gabrielmiguelok/kudos/pkg/transport"
)

// TransportAdapter lets a core.Socket push through a WebSocketTransport.
type TransportAdapter struct {
	ws *transport.WebSocketTransport
}

// NewTransportAdapter wraps ws.
func NewTransportAdapter(ws *transport.WebSocketTransport) *TransportAdapter {
	return &TransportAdapter{ws: ws}
}

// Send implements core.Transport.
func (a *TransportAdapter) Send(msg core.Message) error {
	return a.ws.Send(toProtocol(msg))
}

// Close implements core.Transport.
func (a *TransportAdapter) Close() error {
	return a.ws.Close()
}

// IsConnected implements core.Transport.
func (a *TransportAdapter) IsConnected() bool {
	return a.ws.IsConnected()
}

func toProtocol(msg core.Message) *protocol.Message {
	return protocol.NewMessage(msg.Topic, msg.Event, msg.Payload).WithRef(msg.Ref)
}

// Package protocol defines the messages exchanged between the browser and a
// live session, and the codecs that put them on the wire.
package protocol

import "time"

// Well-known events.
const (
	EventJoin      = "phx_join"
	EventLeave     = "phx_leave"
	EventReply     = "phx_reply"
	EventHeartbeat = "heartbeat"
	EventRender    = "render"
)

// Reply statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Message is one frame on a live connection.
type Message struct {
	// Ref correlates a reply with the request that caused it.
	Ref string `json:"ref,omitempty" msgpack:"ref,omitempty"`

	// JoinRef is the ref of the join that opened the channel.
	JoinRef string `json:"join_ref,omitempty" msgpack:"join_ref,omitempty"`

	// Topic is the channel, "lv:<socket id>" for live views.
	Topic string `json:"topic" msgpack:"topic"`

	Event   string         `json:"event" msgpack:"event"`
	Payload map[string]any `json:"payload,omitempty" msgpack:"payload,omitempty"`

	// Timestamp is milliseconds since the epoch.
	Timestamp int64 `json:"ts,omitempty" msgpack:"ts,omitempty"`
}

// NewMessage creates a message stamped with the current time.
func NewMessage(topic, event string, payload map[string]any) *Message {
	return &Message{
		Topic:     topic,
		Event:     event,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
}

// WithRef sets the correlation ref.
func (m *Message) WithRef(ref string) *Message {
	m.Ref = ref
	return m
}

// String returns a payload value as a string. Numbers and booleans are not
// converted.
func (m *Message) String(key string) string {
	if m.Payload == nil {
		return ""
	}
	v, _ := m.Payload[key].(string)
	return v
}

// Reply builds a phx_reply for ref.
func Reply(ref, topic, status string, response map[string]any) *Message {
	return NewMessage(topic, EventReply, map[string]any{
		"status":   status,
		"response": response,
	}).WithRef(ref)
}

// OkReply builds a successful reply.
func OkReply(ref, topic string, response map[string]any) *Message {
	return Reply(ref, topic, StatusOK, response)
}

// ErrorReply builds a failed reply carrying reason.
func ErrorReply(ref, topic, reason string) *Message {
	return Reply(ref, topic, StatusError, map[string]any{"reason": reason})
}

// RenderMessage carries a full render of the view. version increases with
// every render so the client can drop stale frames.
func RenderMessage(topic string, version uint64, html string) *Message {
	return NewMessage(topic, EventRender, map[string]any{
		"v": version,
		"f": html,
	})
}

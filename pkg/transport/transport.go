// Package transport carries protocol messages between the browser and a
// live session. WebSocket is the only transport.
package transport

import (
	"errors"
	"time"
)

// Transport errors.
var (
	ErrNotConnected     = errors.New("transport not connected")
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendTimeout      = errors.New("send timeout")
	ErrOriginNotAllowed = errors.New("origin not allowed")
)

// Config holds connection tuning.
type Config struct {
	// ReadTimeout closes a connection that sends nothing for this long.
	// Clients heartbeat well inside it.
	ReadTimeout time.Duration

	// WriteTimeout bounds a single frame write and a blocked Send.
	WriteTimeout time.Duration

	// PingInterval is the protocol-level ping period.
	PingInterval time.Duration

	// MaxMessageSize is the largest frame accepted from a client.
	MaxMessageSize int64

	SendBufferSize    int
	ReceiveBufferSize int
}

// DefaultConfig returns the defaults used by the server.
func DefaultConfig() *Config {
	return &Config{
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		PingInterval:      30 * time.Second,
		MaxMessageSize:    64 * 1024,
		SendBufferSize:    64,
		ReceiveBufferSize: 64,
	}
}

// WebSocketConfig holds the origin policy for upgrades.
type WebSocketConfig struct {
	// AllowedOrigins lists origins besides the request host that may
	// connect. "*" allows any.
	AllowedOrigins []string

	// InsecureDevMode skips origin checks. Development only.
	InsecureDevMode bool
}

// DefaultWebSocketConfig allows same-origin connections only.
func DefaultWebSocketConfig() *WebSocketConfig {
	return &WebSocketConfig{}
}

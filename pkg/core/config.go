package core

import "time"

// TimeoutConfig bounds the live view lifecycle.
type TimeoutConfig struct {
	// ComponentMount bounds Mount.
	ComponentMount time.Duration

	// ComponentEvent bounds one HandleEvent or HandleInfo call.
	ComponentEvent time.Duration

	WebSocketRead  time.Duration
	WebSocketWrite time.Duration
	WebSocketPing  time.Duration

	// SessionIdle closes live sessions with no client activity.
	SessionIdle time.Duration

	GracefulShutdown time.Duration
}

// DefaultTimeoutConfig returns the server defaults.
func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		ComponentMount:   5 * time.Second,
		ComponentEvent:   3 * time.Second,
		WebSocketRead:    60 * time.Second,
		WebSocketWrite:   10 * time.Second,
		WebSocketPing:    30 * time.Second,
		SessionIdle:      30 * time.Minute,
		GracefulShutdown: 15 * time.Second,
	}
}

// Validate rejects non-positive timeouts.
func (c TimeoutConfig) Validate() error {
	for _, d := range []time.Duration{
		c.ComponentMount, c.ComponentEvent,
		c.WebSocketRead, c.WebSocketWrite, c.WebSocketPing,
		c.SessionIdle, c.GracefulShutdown,
	} {
		if d <= 0 {
			return ErrInvalidTimeout
		}
	}
	if c.WebSocketPing >= c.WebSocketRead {
		return ErrPingNotBelowRead
	}
	return nil
}

// Configuration errors.
var (
	ErrInvalidTimeout   = configError("timeouts must be positive")
	ErrPingNotBelowRead = configError("websocket ping interval must be shorter than the read timeout")
)

type configError string

func (e configError) Error() string { return string(e) }

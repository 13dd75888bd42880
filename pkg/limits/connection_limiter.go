// Package limits bounds how many live sessions a client may hold and how
// fast a session may send events.
package limits

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
)

// ConnectionLimiter caps concurrent connections per client IP and overall.
// A non-positive limit disables that cap.
type ConnectionLimiter struct {
	maxPerIP  int
	maxGlobal int

	mu    sync.Mutex
	perIP map[string]int
	total int

	blocked atomic.Int64
}

// NewConnectionLimiter creates a limiter.
func NewConnectionLimiter(maxPerIP, maxGlobal int) *ConnectionLimiter {
	return &ConnectionLimiter{
		maxPerIP:  maxPerIP,
		maxGlobal: maxGlobal,
		perIP:     make(map[string]int),
	}
}

// Acquire takes a slot for ip. It returns false when either cap is reached.
func (cl *ConnectionLimiter) Acquire(ip string) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if (cl.maxGlobal > 0 && cl.total >= cl.maxGlobal) ||
		(cl.maxPerIP > 0 && cl.perIP[ip] >= cl.maxPerIP) {
		cl.blocked.Add(1)
		return false
	}
	cl.perIP[ip]++
	cl.total++
	return true
}

// Release returns a slot taken by Acquire.
func (cl *ConnectionLimiter) Release(ip string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	n, ok := cl.perIP[ip]
	if !ok {
		return
	}
	if n <= 1 {
		delete(cl.perIP, ip)
	} else {
		cl.perIP[ip] = n - 1
	}
	cl.total--
}

// Count returns the connections held by ip.
func (cl *ConnectionLimiter) Count(ip string) int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.perIP[ip]
}

// Total returns the connections held overall.
func (cl *ConnectionLimiter) Total() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.total
}

// Blocked returns how many Acquire calls were refused.
func (cl *ConnectionLimiter) Blocked() int64 {
	return cl.blocked.Load()
}

// ClientIP extracts the client address, preferring X-Forwarded-For and
// X-Real-IP over RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

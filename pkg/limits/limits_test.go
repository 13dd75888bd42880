package limits

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConnectionLimiter_PerIP(t *testing.T) {
	cl := NewConnectionLimiter(2, 0)

	assert.True(t, cl.Acquire("1.1.1.1"))
	assert.True(t, cl.Acquire("1.1.1.1"))
	assert.False(t, cl.Acquire("1.1.1.1"))
	assert.True(t, cl.Acquire("2.2.2.2"))
	assert.EqualValues(t, 1, cl.Blocked())

	cl.Release("1.1.1.1")
	assert.Equal(t, 1, cl.Count("1.1.1.1"))
	assert.True(t, cl.Acquire("1.1.1.1"))
	assert.Equal(t, 3, cl.Total())

	cl.Release("9.9.9.9")
	assert.Equal(t, 3, cl.Total(), "unknown ip is ignored")
}

func TestConnectionLimiter_Global(t *testing.T) {
	cl := NewConnectionLimiter(0, 2)
	assert.True(t, cl.Acquire("a"))
	assert.True(t, cl.Acquire("b"))
	assert.False(t, cl.Acquire("c"))

	cl.Release("a")
	cl.Release("b")
	assert.Zero(t, cl.Total())
	assert.Zero(t, cl.Count("a"))
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", ClientIP(r))

	r.Header.Set("X-Real-IP", "10.0.0.2")
	assert.Equal(t, "10.0.0.2", ClientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.3")
	assert.Equal(t, "203.0.113.7", ClientIP(r))
}

func TestBucket(t *testing.T) {
	now := time.Unix(100, 0)
	b := newBucketAt(2, 3, func() time.Time { return now })

	for i := 0; i < 3; i++ {
		assert.True(t, b.Allow(), "burst %d", i)
	}
	assert.False(t, b.Allow())

	now = now.Add(500 * time.Millisecond)
	assert.True(t, b.Allow())
	assert.False(t, b.Allow())

	now = now.Add(time.Hour)
	for i := 0; i < 3; i++ {
		assert.True(t, b.Allow())
	}
	assert.False(t, b.Allow(), "refill is capped at burst")
}

func TestBucket_Disabled(t *testing.T) {
	var nilBucket *Bucket
	assert.True(t, nilBucket.Allow())

	b := NewBucket(0, 0)
	for i := 0; i < 100; i++ {
		assert.True(t, b.Allow())
	}
}

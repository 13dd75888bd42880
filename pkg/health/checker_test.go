package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(context.Context) error { return nil }

func TestCheck_AllPass(t *testing.T) {
	c := NewChecker("1.0.0")
	c.AddCheck("a", ok, time.Second)
	c.AddCriticalCheck("b", ok, 0)

	r := c.Check(context.Background())
	assert.Equal(t, StatusHealthy, r.Status)
	assert.Len(t, r.Checks, 2)
	assert.Equal(t, "1.0.0", r.Version)
}

func TestCheck_Degraded(t *testing.T) {
	c := NewChecker("")
	c.AddCriticalCheck("core", ok, time.Second)
	c.AddCheck("webhook", func(context.Context) error { return errors.New("down") }, time.Second)

	r := c.Check(context.Background())
	assert.Equal(t, StatusDegraded, r.Status)
	assert.Equal(t, "down", r.Checks["webhook"].Error)
	assert.Equal(t, StatusHealthy, r.Checks["core"].Status)
}

func TestCheck_CriticalTimeout(t *testing.T) {
	c := NewChecker("")
	c.AddCriticalCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, 10*time.Millisecond)

	r := c.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, r.Status)
	assert.Contains(t, r.Checks["slow"].Error, "deadline")
}

func TestReadinessHandler(t *testing.T) {
	sessions := 3
	c := NewChecker("v")
	c.AddCriticalCheck("sessions", CapacityCheck(func() int { return sessions }, 3), time.Second)

	rec := httptest.NewRecorder()
	c.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, StatusUnhealthy, report.Status)
	assert.Equal(t, "3 live sessions, limit 3", report.Checks["sessions"].Error)

	sessions = 1
	rec = httptest.NewRecorder()
	c.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLivenessHandler(t *testing.T) {
	c := NewChecker("v2")
	rec := httptest.NewRecorder()
	c.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"alive","version":"v2"}`, rec.Body.String())
}

func TestCapacityCheck_Unlimited(t *testing.T) {
	assert.NoError(t, CapacityCheck(func() int { return 1 << 20 }, 0)(context.Background()))
}

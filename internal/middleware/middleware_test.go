package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/akolanti/DocVault/internal/adapter/utils"
	"github.com/akolanti/DocVault/pkg/logger_i"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func echoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Seen-Department", utils.DepartmentFromContext(r.Context()))
	w.Header().Set("X-Seen-Trace", utils.TraceIdFromContext(r.Context()))
	w.WriteHeader(http.StatusOK)
}

func TestChain(t *testing.T) {
	opts := Options{AuthToken: "tok", Departments: []string{"IT", "Finanzas"}, RateLimit: 1000, RateBurst: 1000}

	tests := []struct {
		name       string
		opts       Options
		auth       string
		department string
		wantCode   int
		wantDept   string
	}{
		{"valid token and department", opts, "Bearer tok", "Finanzas", http.StatusOK, "Finanzas"},
		{"no department is anonymous", opts, "Bearer tok", "", http.StatusOK, ""},
		{"missing token", opts, "", "IT", http.StatusUnauthorized, ""},
		{"wrong scheme", opts, "Basic tok", "IT", http.StatusUnauthorized, ""},
		{"wrong token", opts, "Bearer nope", "IT", http.StatusUnauthorized, ""},
		{"unknown department", opts, "Bearer tok", "Ventas", http.StatusForbidden, ""},
		{"bypass skips the token", Options{NoAuthBypass: true, Departments: []string{"IT"}}, "", "IT", http.StatusOK, "IT"},
		{"no configured token rejects", Options{Departments: []string{"IT"}}, "Bearer ", "IT", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := New(tt.opts).Wrap(echoHandler)
			req := httptest.NewRequest(http.MethodGet, "/documents", nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			if tt.department != "" {
				req.Header.Set(DepartmentHeader, tt.department)
			}
			rec := httptest.NewRecorder()
			handler(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, tt.wantDept, rec.Header().Get("X-Seen-Department"))
			}
		})
	}
}

func TestTraceIsPropagated(t *testing.T) {
	handler := New(Options{NoAuthBypass: true}).Wrap(echoHandler)

	req := httptest.NewRequest(http.MethodGet, "/query", nil)
	req.Header.Set("X-Trace-Id", "trace-123")
	rec := httptest.NewRecorder()
	handler(rec, req)
	assert.Equal(t, "trace-123", rec.Header().Get("X-Seen-Trace"))
	assert.Equal(t, "trace-123", rec.Header().Get("X-Trace-Id"))

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/query", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Seen-Trace"), "a trace id is generated when none is sent")
}

func TestRateLimiter(t *testing.T) {
	handler := New(Options{NoAuthBypass: true, RateLimit: 0.001, RateBurst: 2}).Wrap(echoHandler)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/query", nil)
		req.RemoteAddr = "10.1.1.1:5555"
		rec := httptest.NewRecorder()
		handler(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// other clients have their own bucket
	req := httptest.NewRequest(http.MethodGet, "/query", nil)
	req.RemoteAddr = "10.1.1.2:5555"
	rec := httptest.NewRecorder()
	handler(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	clock := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	limiter := NewIPRateLimiter(rate.Limit(0.001), 1, time.Minute)
	limiter.now = func() time.Time { return clock }

	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.2"))
	assert.Equal(t, 2, limiter.Tracked())

	// 10.0.0.2 stays active while 10.0.0.1 goes quiet
	clock = clock.Add(40 * time.Second)
	assert.False(t, limiter.Allow("10.0.0.2"))
	clock = clock.Add(30 * time.Second)
	assert.False(t, limiter.Allow("10.0.0.2"))
	assert.Equal(t, 1, limiter.Tracked())

	// an evicted client starts again with a full bucket
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.Equal(t, 2, limiter.Tracked())
}

func TestIsValidBearerToken(t *testing.T) {
	log := logger_i.NewLogger("test")
	assert.True(t, IsValidBearerToken("Bearer abc", Options{AuthToken: "abc"}, log))
	assert.False(t, IsValidBearerToken("Bearer abcd", Options{AuthToken: "abc"}, log))
	assert.False(t, IsValidBearerToken("abc", Options{AuthToken: "abc"}, log))
}

package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cuentia/server/internal/shared/logger"
	"github.com/cuentia/server/internal/shared/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- Mocks ---

type MockTokenValidator struct {
	mock.Mock
}

func (m *MockTokenValidator) ValidateToken(token string) (*Principal, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Principal), args.Error(1)
}

type MockRateLimiter struct {
	mock.Mock
}

func (m *MockRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Int(1), args.Error(2)
}

// --- Tests ---

func TestRequestID(t *testing.T) {
	t.Run("generates new request ID when not provided", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusOK, GetRequestID(c))
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		headerID := w.Header().Get(RequestIDHeader)
		assert.NotEmpty(t, headerID)
		assert.Equal(t, headerID, w.Body.String())
	})

	t.Run("uses existing request ID from header", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusOK, GetRequestID(c))
		})

		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, "existing-request-id-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "existing-request-id-123", w.Header().Get(RequestIDHeader))
		assert.Equal(t, "existing-request-id-123", w.Body.String())
	})
}

func TestRequireAuth(t *testing.T) {
	userID := uuid.New()

	newRouter := func(v TokenValidator) *gin.Engine {
		router := gin.New()
		router.Use(RequireAuth(v))
		router.GET("/me", func(c *gin.Context) {
			c.String(http.StatusOK, GetUserID(c).String())
		})
		return router
	}

	t.Run("valid token sets user", func(t *testing.T) {
		v := new(MockTokenValidator)
		v.On("ValidateToken", "good").Return(&Principal{UserID: userID, Email: "a@b.c"}, nil)

		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set(AuthorizationHeader, "Bearer good")
		w := httptest.NewRecorder()
		newRouter(v).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, userID.String(), w.Body.String())
		v.AssertExpectations(t)
	})

	t.Run("missing header", func(t *testing.T) {
		v := new(MockTokenValidator)
		w := httptest.NewRecorder()
		newRouter(v).ServeHTTP(w, httptest.NewRequest("GET", "/me", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "unauthorized")
		v.AssertNotCalled(t, "ValidateToken", mock.Anything)
	})

	t.Run("invalid token", func(t *testing.T) {
		v := new(MockTokenValidator)
		v.On("ValidateToken", "bad").Return(nil, errors.New("expired"))

		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set(AuthorizationHeader, "Bearer bad")
		w := httptest.NewRecorder()
		newRouter(v).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "invalid_token")
	})
}

func TestLogging(t *testing.T) {
	tests := []struct {
		name   string
		level  string
		status int
		want   string
	}{
		{"logs successful requests", "info", http.StatusOK, "INFO"},
		{"logs 4xx requests as warnings", "warn", http.StatusPaymentRequired, "WARN"},
		{"logs 5xx requests as errors", "error", http.StatusBadGateway, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			log := logger.New(&logger.Config{Level: tt.level, Format: "json", Output: buf})

			router := gin.New()
			router.Use(RequestID())
			router.Use(Logging(log))
			router.GET("/test", func(c *gin.Context) {
				assert.NotNil(t, logger.FromContext(c.Request.Context()))
				c.String(tt.status, "x")
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("GET", "/test?limit=5", nil))

			out := buf.String()
			assert.Contains(t, out, "HTTP Request")
			assert.Contains(t, out, tt.want)
			assert.Contains(t, out, "limit=5")
			assert.Contains(t, out, "request_id")
		})
	}
}

func TestRecovery(t *testing.T) {
	t.Run("recovers from panic", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(&logger.Config{Level: "error", Format: "json", Output: buf})

		router := gin.New()
		router.Use(Recovery(log))
		router.GET("/panic", func(c *gin.Context) {
			panic("test panic")
		})

		w := httptest.NewRecorder()
		require.NotPanics(t, func() {
			router.ServeHTTP(w, httptest.NewRequest("GET", "/panic", nil))
		})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "internal_error")
		assert.Contains(t, buf.String(), "Panic recovered")
		assert.Contains(t, buf.String(), "test panic")
	})

	t.Run("uses default logger when nil", func(t *testing.T) {
		router := gin.New()
		router.Use(Recovery(nil))
		router.GET("/panic", func(c *gin.Context) {
			panic("test panic")
		})

		w := httptest.NewRecorder()
		require.NotPanics(t, func() {
			router.ServeHTTP(w, httptest.NewRequest("GET", "/panic", nil))
		})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestDefaultCORSConfig(t *testing.T) {
	cfg := DefaultCORSConfig(nil)
	assert.Equal(t, []string{"*"}, cfg.AllowOrigins)
	assert.Contains(t, cfg.AllowHeaders, IdempotencyKeyHeader)
	assert.Contains(t, cfg.AllowHeaders, "Authorization")
	assert.NotNil(t, CORS(cfg))

	cfg = DefaultCORSConfig([]string{"https://app.cuentia.example"})
	assert.Equal(t, []string{"https://app.cuentia.example"}, cfg.AllowOrigins)
}

func TestRateLimitByUser(t *testing.T) {
	userID := uuid.New()

	newRouter := func(l RateLimiter, limit int) *gin.Engine {
		router := gin.New()
		router.Use(func(c *gin.Context) {
			c.Set(UserIDKey, userID)
			c.Next()
		})
		router.Use(RateLimitByUser(l, "generations", limit, time.Minute))
		router.POST("/gen", func(c *gin.Context) {
			c.Status(http.StatusCreated)
		})
		return router
	}

	t.Run("allows under limit", func(t *testing.T) {
		l := new(MockRateLimiter)
		l.On("Allow", mock.Anything, "generations:user:"+userID.String(), 3, time.Minute).Return(true, 2, nil)

		w := httptest.NewRecorder()
		newRouter(l, 3).ServeHTTP(w, httptest.NewRequest("POST", "/gen", nil))

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "2", w.Header().Get(RateLimitRemaining))
		l.AssertExpectations(t)
	})

	t.Run("rejects over limit", func(t *testing.T) {
		l := new(MockRateLimiter)
		l.On("Allow", mock.Anything, mock.Anything, 3, time.Minute).Return(false, 0, nil)

		w := httptest.NewRecorder()
		newRouter(l, 3).ServeHTTP(w, httptest.NewRequest("POST", "/gen", nil))

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "60", w.Header().Get(RetryAfter))
	})

	t.Run("fails open on limiter error", func(t *testing.T) {
		l := new(MockRateLimiter)
		l.On("Allow", mock.Anything, mock.Anything, 3, time.Minute).Return(false, 0, errors.New("redis down"))

		w := httptest.NewRecorder()
		newRouter(l, 3).ServeHTTP(w, httptest.NewRequest("POST", "/gen", nil))

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("nil limiter disables", func(t *testing.T) {
		w := httptest.NewRecorder()
		newRouter(nil, 3).ServeHTTP(w, httptest.NewRequest("POST", "/gen", nil))
		assert.Equal(t, http.StatusCreated, w.Code)
	})
}

func TestIdempotency_NilRedisPassesThrough(t *testing.T) {
	calls := 0
	router := gin.New()
	router.Use(Idempotency(nil, IdempotencyConfig{}))
	router.POST("/gen", func(c *gin.Context) {
		calls++
		c.Status(http.StatusCreated)
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/gen", nil)
		req.Header.Set(IdempotencyKeyHeader, "k1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusCreated, w.Code)
	}
	assert.Equal(t, 2, calls)
}

func TestMetrics(t *testing.T) {
	m := metrics.New("test", prometheus.NewRegistry())

	router := gin.New()
	router.Use(Metrics(m))
	router.GET("/api/v1/generations/:id", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/generations/abc", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/generations/:id", "2xx")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.HTTPRequestsInFlight))
}

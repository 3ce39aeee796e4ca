package app

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cuentia/server/internal/module/billing"
	"github.com/cuentia/server/internal/module/character"
	"github.com/cuentia/server/internal/module/credits"
	"github.com/cuentia/server/internal/module/generation"
	"github.com/cuentia/server/internal/shared/config"
	"github.com/cuentia/server/internal/shared/logger"
	"github.com/cuentia/server/internal/shared/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type rejectAll struct{}

func (rejectAll) ValidateToken(string) (*middleware.Principal, error) {
	return nil, errors.New("rejected")
}

func testApp() *App {
	deps := &Dependencies{
		Config:            &config.Config{},
		Logger:            logger.New(nil),
		ZapLogger:         zap.NewNop(),
		Registry:          prometheus.NewRegistry(),
		TokenValidator:    rejectAll{},
		CreditsHandler:    credits.NewHandler(nil),
		CharacterHandler:  character.NewHandler(nil),
		GenerationHandler: generation.NewHandler(nil),
		BillingHandler:    billing.NewHandler(nil, zap.NewNop()),
	}
	a := &App{deps: deps, cleanup: func() {}}
	a.router = a.setupRouter()
	return a
}

func TestApp_Routes(t *testing.T) {
	r := testApp().Router()

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{name: "metrics", method: http.MethodGet, path: "/metrics", want: http.StatusOK},
		{name: "balance requires auth", method: http.MethodGet, path: "/api/v1/credits", want: http.StatusUnauthorized},
		{name: "characters require auth", method: http.MethodGet, path: "/api/v1/characters", want: http.StatusUnauthorized},
		{name: "generation requires auth", method: http.MethodPost, path: "/api/v1/generations/story", want: http.StatusUnauthorized},
		{name: "checkout requires auth", method: http.MethodPost, path: "/api/v1/billing/checkout", want: http.StatusUnauthorized},
		{name: "unknown route", method: http.MethodGet, path: "/api/v2/credits", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.Header.Set(middleware.AuthorizationHeader, "Bearer token")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}

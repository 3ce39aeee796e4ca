package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"time"

	"github.com/cuentia/server/internal/module/pricing"
	"github.com/cuentia/server/internal/shared/config"
	"github.com/cuentia/server/internal/shared/metrics"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// File is a reference image forwarded to the gateway.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// GatewayRequest is one call to the generation gateway.
type GatewayRequest struct {
	Operation pricing.Operation
	Fields    map[string]string
	Files     []File
}

// GatewayResult is the gateway's successful answer.
type GatewayResult struct {
	ResultURL string `json:"resultUrl"`
}

// Gateway performs AI generation off-system.
type Gateway interface {
	Generate(ctx context.Context, req *GatewayRequest) (*GatewayResult, error)
}

const maxErrorBody = 512

// HTTPGateway talks to the generation webhooks over multipart HTTP.
// Each operation has its own circuit breaker.
type HTTPGateway struct {
	urls        map[pricing.Operation]string
	callbackURL string
	secret      string
	maxBytes    int64
	client      *http.Client
	breakers    map[pricing.Operation]*gobreaker.CircuitBreaker[*GatewayResult]
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewHTTPGateway creates a gateway client from configuration.
func NewHTTPGateway(cfg *config.GatewayConfig, m *metrics.Metrics, logger *zap.Logger) *HTTPGateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	maxBytes := cfg.MaxResponseBytes
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	circuitTimeout := cfg.CircuitTimeout
	if circuitTimeout <= 0 {
		circuitTimeout = 60 * time.Second
	}

	g := &HTTPGateway{
		urls: map[pricing.Operation]string{
			pricing.OperationAvatar: cfg.AvatarURL,
			pricing.OperationStory:  cfg.StoryURL,
		},
		callbackURL: cfg.CallbackURL,
		secret:      cfg.Secret,
		maxBytes:    maxBytes,
		client:      &http.Client{Timeout: timeout},
		breakers:    make(map[pricing.Operation]*gobreaker.CircuitBreaker[*GatewayResult]),
		metrics:     m,
		logger:      logger,
	}

	for op := range g.urls {
		g.breakers[op] = gobreaker.NewCircuitBreaker[*GatewayResult](gobreaker.Settings{
			Name:        string(op),
			MaxRequests: 1,
			Interval:    60 * time.Second,
			Timeout:     circuitTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			IsSuccessful: isBreakerSuccess,
			OnStateChange: func(name string, from, to gobreaker.State) {
				g.metrics.SetCircuitOpen(name, to == gobreaker.StateOpen)
				g.logger.Warn("gateway circuit state changed",
					zap.String("operation", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		})
	}
	return g
}

// Generate sends the request and waits for the result URL.
func (g *HTTPGateway) Generate(ctx context.Context, req *GatewayRequest) (*GatewayResult, error) {
	url := g.urls[req.Operation]
	breaker, ok := g.breakers[req.Operation]
	if url == "" || !ok {
		return nil, fmt.Errorf("%w: %s", ErrGatewayNotConfigured, req.Operation)
	}

	start := time.Now()
	result, err := breaker.Execute(func() (*GatewayResult, error) {
		return g.do(ctx, url, req)
	})
	g.metrics.RecordGatewayRequest(string(req.Operation), gatewayStatus(err), time.Since(start))

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrCircuitOpen, err)
	}
	return result, err
}

func (g *HTTPGateway) do(ctx context.Context, url string, req *GatewayRequest) (*GatewayResult, error) {
	body, contentType, err := g.encode(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	if g.secret != "" {
		httpReq.Header.Set("X-Webhook-Secret", g.secret)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(b)}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, g.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(raw)) > g.maxBytes {
		return nil, ErrResponseTooLarge
	}

	var result GatewayResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if result.ResultURL == "" {
		return nil, fmt.Errorf("%w: missing resultUrl", ErrMalformedResponse)
	}
	return &result, nil
}

func (g *HTTPGateway) encode(req *GatewayRequest) (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	keys := make([]string, 0, len(req.Fields))
	for k := range req.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, req.Fields[k]); err != nil {
			return nil, "", err
		}
	}
	if g.callbackURL != "" {
		if err := w.WriteField("callback_url", g.callbackURL); err != nil {
			return nil, "", err
		}
	}

	for _, f := range req.Files {
		part, err := w.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

// isBreakerSuccess keeps client-side errors and caller cancellation from tripping the breaker.
func isBreakerSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode < 500 && se.StatusCode != http.StatusTooManyRequests
	}
	return false
}

func gatewayStatus(err error) string {
	var se *StatusError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "circuit_open"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &se):
		return fmt.Sprintf("http_%d", se.StatusCode)
	default:
		return "error"
	}
}

var _ Gateway = (*HTTPGateway)(nil)

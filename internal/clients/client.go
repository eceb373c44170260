// Package clients contains typed HTTP clients for the collaborating
// Telegive services. Every request carries the X-Service-Name header so
// the callee can attribute traffic.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/azatarm-prog/telegive-giveaway/internal/common/errors"
	"github.com/azatarm-prog/telegive-giveaway/internal/common/logger"
)

const serviceName = "telegive-giveaway"

// Таймауты по классам запросов
const (
	defaultTimeout       = 10 * time.Second
	postingTimeout       = 30 * time.Second
	bulkTimeout          = 120 * time.Second
	defaultHealthTimeout = 5 * time.Second
)

// HealthChecker is implemented by every collaborator client.
type HealthChecker interface {
	Name() string
	Healthy(ctx context.Context) bool
}

type baseClient struct {
	name          string
	baseURL       string
	healthTimeout time.Duration
	http          *http.Client
}

func newBaseClient(name, baseURL string, healthTimeout time.Duration) baseClient {
	if healthTimeout <= 0 {
		healthTimeout = defaultHealthTimeout
	}
	return baseClient{
		name:          name,
		baseURL:       baseURL,
		healthTimeout: healthTimeout,
		http:          &http.Client{},
	}
}

func (c *baseClient) Name() string {
	return c.name
}

// Healthy probes the collaborator's /health endpoint. Used only for
// reporting; lifecycle operations never consult it.
func (c *baseClient) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	req.Header.Set("X-Service-Name", serviceName)

	resp, err := c.http.Do(req)
	if err != nil {
		logger.Warn().Err(err).Str("service", c.name).Msg("Health probe failed")
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

// envelope is the common {success, error, error_code} response shape.
type envelope struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
}

// callError carries the collaborator's response for the publishing log.
type callError struct {
	service  string
	status   int
	envelope envelope
	cause    error
}

func (e *callError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s request failed: %v", e.service, e.cause)
	}
	if e.envelope.Error != "" {
		return fmt.Sprintf("%s returned %d: %s", e.service, e.status, e.envelope.Error)
	}
	return fmt.Sprintf("%s returned %d", e.service, e.status)
}

func (e *callError) Unwrap() error {
	return e.cause
}

// asAppError maps a callError to the given application error code,
// preserving the callee's response for diagnostics.
func (e *callError) asAppError(code errors.ErrorCode, message string) *errors.AppError {
	appErr := errors.Wrap(e, code, message).
		WithDetail("service", e.service)
	if e.status != 0 {
		appErr.WithDetail("upstream_status", e.status)
	}
	if e.envelope.Error != "" {
		appErr.WithDetail("upstream_error", e.envelope.Error)
	}
	if e.envelope.ErrorCode != "" {
		appErr.WithDetail("upstream_error_code", e.envelope.ErrorCode)
	}
	return appErr
}

// doJSON performs a JSON request and decodes a successful response into out.
// Non-2xx responses and transport failures come back as *callError.
func (c *baseClient) doJSON(ctx context.Context, method, path string, timeout time.Duration, body, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", c.name, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", c.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Name", serviceName)

	resp, err := c.http.Do(req)
	if err != nil {
		return &callError{service: c.name, cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &callError{service: c.name, status: resp.StatusCode, cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		callErr := &callError{service: c.name, status: resp.StatusCode}
		// Тело ошибки может быть и не JSON
		_ = json.Unmarshal(data, &callErr.envelope)
		return callErr
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return &callError{service: c.name, status: resp.StatusCode, cause: err}
		}
	}
	return nil
}

package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"

	"github.com/i474232898/climate-trip-planner/internal/metrics"
)

var (
	// ErrBreakerOpen is wrapped in the UpstreamError returned while an
	// upstream's circuit breaker rejects calls.
	ErrBreakerOpen = errors.New("circuit breaker open")

	errRateLimited  = errors.New("rate limited")
	errServerError  = errors.New("server error")
	errUnexpected   = errors.New("unexpected status code")
	errNoHTTPClient = errors.New("http client not configured")
)

// UpstreamError reports a failed call to a third-party API. StatusCode is 0
// when no HTTP response was received.
type UpstreamError struct {
	Upstream   string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %v (status %d)", e.Upstream, e.Err, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Upstream, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

// doRequest executes req once through the circuit breaker. Non-2xx responses
// are closed and reported as *UpstreamError; failures are never retried.
func doRequest(
	ctx context.Context,
	client *http.Client,
	cb *gobreaker.CircuitBreaker,
	upstream string,
	req *http.Request,
) (*http.Response, error) {
	if client == nil {
		return nil, errNoHTTPClient
	}

	started := time.Now()
	req = req.WithContext(ctx)

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := client.Do(req)
		if execErr != nil {
			return nil, &UpstreamError{Upstream: upstream, Err: execErr}
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		statusErr := errUnexpected
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			statusErr = errRateLimited
		case resp.StatusCode >= 500:
			statusErr = errServerError
		}
		return nil, &UpstreamError{Upstream: upstream, StatusCode: resp.StatusCode, Err: statusErr}
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RecordUpstream(upstream, "breaker_open", started)
			return nil, &UpstreamError{Upstream: upstream, Err: fmt.Errorf("%w: %v", ErrBreakerOpen, err)}
		}

		outcome := "transport_error"
		var ue *UpstreamError
		if errors.As(err, &ue) && ue.StatusCode != 0 {
			outcome = "http_error"
		}
		metrics.RecordUpstream(upstream, outcome, started)
		return nil, err
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	metrics.RecordUpstream(upstream, "ok", started)
	return resp, nil
}

// decodeBody decodes a JSON response body into v and closes it.
func decodeBody(upstream string, resp *http.Response, v any) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &UpstreamError{Upstream: upstream, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

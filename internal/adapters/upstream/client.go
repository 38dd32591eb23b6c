// Package upstream contains HTTP clients for the analytics and progress
// services. Each client bounds every call with a timeout and guards its
// service with a circuit breaker.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/okian/orbit-recommendation/pkg/logger"
	"github.com/okian/orbit-recommendation/pkg/metrics"
)

const (
	defaultTimeout = 2 * time.Second
	maxBodyBytes   = 1 << 20
)

// Client is a JSON-over-HTTP reader for one upstream service.
type Client struct {
	name       string
	baseURL    string
	http       *http.Client
	timeout    time.Duration
	breakerCfg BreakerConfig
	cb         *gobreaker.CircuitBreaker[[]byte]
	logger     logger.Logger
}

func newClient(name, baseURL string, opts ...Option) *Client {
	c := &Client{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{},
		timeout:    defaultTimeout,
		breakerCfg: DefaultBreakerConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cb = c.newBreaker()
	metrics.UpdateCircuitBreakerState(name, stateToFloat(gobreaker.StateClosed))
	return c
}

func (c *Client) newBreaker() *gobreaker.CircuitBreaker[[]byte] {
	cfg := c.breakerCfg
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        c.name,
		MaxRequests: cfg.MaxRequests,
		Interval:    time.Minute,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureRatio
		},
		// A missing record is an answer, not a fault.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		// Abandoned calls count neither way.
		IsExcluded: func(err error) bool {
			return errors.Is(err, ErrCanceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log().Info(context.Background(), "circuit breaker state change",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()))
			metrics.UpdateCircuitBreakerState(name, stateToFloat(to))
			metrics.RecordCircuitBreakerTransition(name, from.String(), to.String())
		},
	})
}

// BreakerState returns the current breaker state.
func (c *Client) BreakerState() string { return c.cb.State().String() }

// getJSON reads path and decodes the body into T. source labels metrics.
func getJSON[T any](ctx context.Context, c *Client, source, path string) (T, error) {
	var zero T
	start := time.Now()

	body, err := c.execute(ctx, path)
	if err == nil {
		var v T
		if derr := json.Unmarshal(body, &v); derr != nil {
			err = fmt.Errorf("%w: %s: %w", ErrDecode, source, derr)
		} else {
			metrics.RecordUpstreamRequest(source, metrics.UpstreamOK, elapsedMs(start))
			return v, nil
		}
	}

	metrics.RecordUpstreamRequest(source, outcomeLabel(err), elapsedMs(start))
	return zero, err
}

func (c *Client) execute(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCanceled, c.name, err)
	}
	body, err := c.cb.Execute(func() ([]byte, error) {
		body, err := c.get(ctx, path)
		// The per-call timeout is a child of ctx, so a live ctx here means
		// the upstream itself failed.
		if err != nil && ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCanceled, c.name, ctx.Err())
		}
		return body, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s: %w", ErrCircuitOpen, c.name, err)
	}
	return body, err
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrUnavailable, c.name, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, c.name, path)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: %s %s: status %d", ErrUnavailable, c.name, path, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrUnavailable, err)
	}
	return body, nil
}

func (c *Client) log() logger.Logger {
	if c.logger != nil {
		return c.logger
	}
	return logger.Named("upstream")
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return metrics.UpstreamNotFound
	case errors.Is(err, ErrCircuitOpen):
		return metrics.UpstreamBreakerOpen
	case errors.Is(err, ErrCanceled):
		return metrics.UpstreamCanceled
	default:
		return metrics.UpstreamError
	}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

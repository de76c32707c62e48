// Package invoker calls the seasonal discount handler synchronously over
// HTTP, behind a circuit breaker.
package invoker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/niksmo/dynamic-pricing/internal/core/domain"
	"github.com/niksmo/dynamic-pricing/internal/core/port"
	"github.com/niksmo/dynamic-pricing/internal/core/router"
)

var _ port.SeasonalInvoker = (*SeasonalInvoker)(nil)

const (
	DefaultTimeout          = 10 * time.Second
	DefaultFailureThreshold = 5
	DefaultBreakerDelay     = 10 * time.Second

	maxResponseBytes = 1 << 20
)

type Opt func(*options)

type options struct {
	client           *http.Client
	failureThreshold uint
	breakerDelay     time.Duration
}

func HTTPClientOpt(cl *http.Client) Opt {
	return func(o *options) { o.client = cl }
}

// BreakerOpt opens the circuit after threshold consecutive failures and
// keeps it open for delay.
func BreakerOpt(threshold uint, delay time.Duration) Opt {
	return func(o *options) {
		o.failureThreshold = threshold
		o.breakerDelay = delay
	}
}

// A SeasonalInvoker posts a seasonal discount request and returns the
// response of the invoked handler as is, including non-2xx statuses.
type SeasonalInvoker struct {
	url      string
	client   *http.Client
	pipeline failsafe.Executor[*http.Response]
}

func NewSeasonalInvoker(url string, timeout time.Duration, opts ...Opt) SeasonalInvoker {
	if url == "" {
		panic("NewSeasonalInvoker: url is empty") // develop mistake
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	o := options{
		client:           &http.Client{Timeout: timeout},
		failureThreshold: DefaultFailureThreshold,
		breakerDelay:     DefaultBreakerDelay,
	}
	for _, opt := range opts {
		opt(&o)
	}

	breaker := circuitbreaker.NewBuilder[*http.Response]().
		HandleIf(func(resp *http.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp.StatusCode >= http.StatusInternalServerError
		}).
		WithFailureThreshold(o.failureThreshold).
		WithDelay(o.breakerDelay).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.With("op", "SeasonalInvoker.breaker").Warn(
				"circuit state changed",
				"from", e.OldState.String(),
				"to", e.NewState.String(),
			)
		}).
		Build()

	return SeasonalInvoker{
		url:      url,
		client:   o.client,
		pipeline: failsafe.With[*http.Response](breaker),
	}
}

func (i SeasonalInvoker) InvokeSeasonal(
	ctx context.Context, req domain.SeasonalDiscountRequest,
) (domain.Response, error) {
	const op = "SeasonalInvoker.InvokeSeasonal"

	payload, err := router.MarshalSeasonalRequest(req)
	if err != nil {
		return domain.Response{}, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := i.pipeline.WithContext(ctx).Get(func() (*http.Response, error) {
		httpReq, err := http.NewRequestWithContext(
			ctx, http.MethodPost, i.url, bytes.NewReader(payload),
		)
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		return i.client.Do(httpReq)
	})
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		if errors.Is(err, circuitbreaker.ErrOpen) {
			slog.With("op", op).Warn("seasonal handler circuit is open")
		}
		return domain.Response{}, fmt.Errorf(
			"%s: %w: %w", op, err, domain.ErrDependency,
		)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return domain.Response{}, fmt.Errorf(
			"%s: read response: %w: %w", op, err, domain.ErrDependency,
		)
	}

	return domain.Response{StatusCode: resp.StatusCode, Body: string(body)}, nil
}

package llm

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/logging"
)

type retrying struct {
	next     Completer
	maxTries uint
	timeout  time.Duration
	initial  time.Duration
	logger   *slog.Logger
}

// WithRetry retries transient provider errors with exponential backoff.
// Each attempt gets its own timeout when timeout > 0.
func WithRetry(c Completer, maxRetries int, timeout time.Duration, logger *slog.Logger) Completer {
	return &retrying{
		next:     c,
		maxTries: uint(max(maxRetries, 0)) + 1,
		timeout:  timeout,
		initial:  time.Second,
		logger:   logging.WithOperation(logger, "llm"),
	}
}

func (r *retrying) Name() string { return r.next.Name() }

func (r *retrying) Close() error { return Close(r.next) }

func (r *retrying) Complete(ctx context.Context, req Request) (string, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initial
	b.MaxInterval = 30 * time.Second

	op := func() (string, error) {
		actx, cancel := ctx, context.CancelFunc(func() {})
		if r.timeout > 0 {
			actx, cancel = context.WithTimeout(ctx, r.timeout)
		}
		defer cancel()

		out, err := r.next.Complete(actx, req)
		if err != nil && !IsTransient(err) {
			return "", backoff.Permanent(err)
		}
		return out, err
	}
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(r.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			r.logger.Warn("llm call failed, retrying", "provider", r.next.Name(), "in", next, logging.Err(err))
		}),
	)
}

// StatusCode extracts the HTTP status from provider errors, or 0.
func StatusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code
	}
	var coder interface{ HTTPCode() int }
	if errors.As(err, &coder) {
		return coder.HTTPCode()
	}
	return 0
}

// IsTransient reports whether a retry might succeed: rate limits, server
// errors and network failures.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	code := StatusCode(err)
	if code == http.StatusTooManyRequests || code >= 500 {
		return true
	}
	if code != 0 {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Package svcerror provides the typed error taxonomy shared by the
// external-service adapters, plus a bounded retry helper.
package svcerror

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Kind classifies an adapter failure.
type Kind int

const (
	KindOther Kind = iota
	KindTransient
	KindNotFound
	KindUnauthorized
	KindRateLimited
	KindMalformed
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindRateLimited:
		return "rate_limited"
	case KindMalformed:
		return "malformed"
	default:
		return "other"
	}
}

// Error is a service adapter error with a classification kind.
type Error struct {
	Kind       Kind
	Service    string
	Underlying error
}

func (e *Error) Error() string {
	return e.Service + ": " + e.Kind.String() + ": " + e.Underlying.Error()
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// New wraps err as an adapter error of the given kind.
func New(kind Kind, service string, err error) *Error {
	return &Error{Kind: kind, Service: service, Underlying: err}
}

// KindOf extracts the kind from err, or KindOther if err is not an adapter error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindOther
}

// IsNotFound reports whether err is a not-found adapter error.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// FromStatusCode classifies an HTTP status code.
func FromStatusCode(service string, code int, err error) *Error {
	switch {
	case code == http.StatusNotFound:
		return New(KindNotFound, service, err)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return New(KindUnauthorized, service, err)
	case code == http.StatusTooManyRequests:
		return New(KindRateLimited, service, err)
	case code >= 500:
		return New(KindTransient, service, err)
	default:
		return New(KindOther, service, err)
	}
}

// Classify inspects an arbitrary transport error. Timeouts and
// connection failures count as transient; rate-limit responses from
// libraries that only surface message text are recognized by content.
func Classify(service string, err error) *Error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return New(KindTransient, service, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return New(KindTransient, service, err)
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "429") || strings.Contains(strings.ToLower(msg), "rate limit"):
		return New(KindRateLimited, service, err)
	case strings.Contains(msg, "500") || strings.Contains(msg, "502") ||
		strings.Contains(msg, "503") || strings.Contains(msg, "504"):
		return New(KindTransient, service, err)
	case strings.Contains(msg, "404") || strings.Contains(strings.ToLower(msg), "not found"):
		return New(KindNotFound, service, err)
	case strings.Contains(msg, "401") || strings.Contains(msg, "403"):
		return New(KindUnauthorized, service, err)
	default:
		return New(KindOther, service, err)
	}
}

// retryable reports whether the error should be retried.
func retryable(err error) bool {
	k := KindOf(err)
	return k == KindTransient || k == KindRateLimited
}

// backoffDelay doubles the base delay for each completed attempt.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	return base << attempt
}

// Retry runs fn up to maxAttempts times with exponential backoff,
// retrying only transient and rate-limited failures. Context
// cancellation aborts between attempts.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryable(err) {
			return err
		}

		if i < maxAttempts-1 {
			select {
			case <-ctx.Done():
				return errors.Wrap(ctx.Err(), "retry aborted")
			case <-time.After(backoffDelay(baseDelay, i)):
			}
		}
	}
	return errors.Wrap(lastErr, "max retries exceeded")
}

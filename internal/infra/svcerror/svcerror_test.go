package svcerror

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"rate limit text", errors.New("spotify: rate limit exceeded"), KindRateLimited},
		{"429 code", errors.New("unexpected status 429"), KindRateLimited},
		{"server error", errors.New("503 service unavailable"), KindTransient},
		{"not found", errors.New("artist not found"), KindNotFound},
		{"unauthorized", errors.New("status 401"), KindUnauthorized},
		{"deadline", context.DeadlineExceeded, KindTransient},
		{"other", errors.New("something odd"), KindOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify("test", tt.err).Kind)
		})
	}
}

func TestFromStatusCode(t *testing.T) {
	assert.Equal(t, KindNotFound, FromStatusCode("t", 404, errors.New("x")).Kind)
	assert.Equal(t, KindUnauthorized, FromStatusCode("t", 403, errors.New("x")).Kind)
	assert.Equal(t, KindRateLimited, FromStatusCode("t", 429, errors.New("x")).Kind)
	assert.Equal(t, KindTransient, FromStatusCode("t", 502, errors.New("x")).Kind)
	assert.Equal(t, KindOther, FromStatusCode("t", 418, errors.New("x")).Kind)
}

func TestRetry_TransientThenSuccess(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls == 1 {
			return New(KindRateLimited, "test", errors.New("throttled"))
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetry_NonRetryableStopsImmediately(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return New(KindNotFound, "test", errors.New("missing"))
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestRetry_ExhaustsBudget(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return New(KindTransient, "test", errors.New("flaky"))
	})
	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestBackoffDelayDoubles(t *testing.T) {
	assert.Equal(t, time.Second, backoffDelay(time.Second, 0))
	assert.Equal(t, 2*time.Second, backoffDelay(time.Second, 1))
	assert.Equal(t, 4*time.Second, backoffDelay(time.Second, 2))
	assert.Equal(t, 8*time.Second, backoffDelay(time.Second, 3))
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, 5, 10*time.Millisecond, func() error {
		return New(KindTransient, "test", errors.New("flaky"))
	})
	assert.Error(t, err)
}

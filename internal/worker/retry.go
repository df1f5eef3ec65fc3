package worker

import (
	"context"
	"errors"
	"time"

	"salesservice/internal/domain"

	"github.com/cenkalti/backoff/v4"
)

// ErrMalformedCommand marks messages that cannot be decoded. They are never retried.
var ErrMalformedCommand = errors.New("malformed report command")

// RetryPolicy retries a failed handler with exponential backoff between
// MinInterval and MaxInterval. Limit counts retries after the first attempt.
type RetryPolicy struct {
	Limit       int
	MinInterval time.Duration
	MaxInterval time.Duration
}

// DefaultRetryPolicy allows three retries between one and thirty seconds apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Limit: 3, MinInterval: time.Second, MaxInterval: 30 * time.Second}
}

// Do runs op until it succeeds, returns a permanent error, the retries are
// used up or ctx ends. It returns how many attempts were made.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) (int, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.MinInterval
	b.MaxInterval = p.MaxInterval
	b.MaxElapsedTime = 0
	b.Reset()

	limit := p.Limit
	if limit < 0 {
		limit = 0
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(limit)), ctx)

	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		err := op(ctx)
		if err != nil && IsPermanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
	return attempts, err
}

// IsPermanent reports whether retrying err cannot help.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrMalformedCommand) || domain.IsPermanent(err)
}

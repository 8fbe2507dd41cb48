package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnavailable means a remote backend could not be reached.
	ErrUnavailable = errors.New("cache backend unavailable")

	// ErrUnknownBackend is returned by Open for a backend name it does not know.
	ErrUnknownBackend = errors.New("unknown cache backend")
)

// transient marks a backend error worth another attempt.
type transient struct{ err error }

func (e transient) Error() string { return e.err.Error() }
func (e transient) Unwrap() error { return e.err }

// Retryable marks err as transient. A nil err stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return transient{err}
}

// IsRetryable reports whether err was marked by Retryable.
func IsRetryable(err error) bool {
	var t transient
	return errors.As(err, &t)
}

var (
	retryDelay    = time.Second
	retryAttempts = 3
)

// RetryWithBackoff calls connect until it succeeds, fails with an error not
// marked Retryable, or runs out of attempts. The delay doubles after every
// transient failure.
func RetryWithBackoff(ctx context.Context, connect func() error) error {
	delay := retryDelay
	var err error
	for attempt := 1; ; attempt++ {
		if err = connect(); err == nil || !IsRetryable(err) || attempt == retryAttempts {
			return err
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		delay *= 2
	}
}

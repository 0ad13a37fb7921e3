package client

import (
	"context"
	"errors"
	"time"
)

// Retry calls fn up to attempts times, sleeping delay between tries. Only
// transport failures are retried; a coded GraphQL error is an answer from
// the server and is returned immediately.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return errors.Join(err, ctx.Err())
			case <-timer.C:
			}
		}
		err = fn(ctx)
		var te *TransportError
		if err == nil || !errors.As(err, &te) {
			return err
		}
	}
	return err
}

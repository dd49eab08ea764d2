package docstore

import (
	"context"
	"errors"
	"time"
)

// Retry runs a read-modify-write until it stops conflicting or attempts
// run out. fn must re-read the document on every call. The last
// ErrConflict is returned when all attempts conflict.
func Retry(ctx context.Context, attempts int, fn func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		err = fn(ctx)
		if !errors.Is(err, ErrConflict) {
			return err
		}
		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i+1) * time.Millisecond):
		}
	}
	return err
}

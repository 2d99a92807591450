package vonage

import (
	"context"
	"time"
)

// RetryPolicy retries an operation while its error matches Predicate,
// waiting Interval between attempts, giving up once Deadline has elapsed
// since the first attempt. Errors not matching the predicate surface
// immediately.
type RetryPolicy struct {
	Predicate func(error) bool
	Interval  time.Duration
	Deadline  time.Duration
}

// Do runs op under the policy. The last error is returned when the
// deadline expires or the context is cancelled mid-wait.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	deadline := time.Now().Add(p.Deadline)

	for {
		err := op()
		if err == nil {
			return nil
		}
		if p.Predicate == nil || !p.Predicate(err) {
			return err
		}
		if time.Now().Add(p.Interval).After(deadline) {
			return err
		}

		select {
		case <-ctx.Done():
			return err
		case <-time.After(p.Interval):
		}
	}
}

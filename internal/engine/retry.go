// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"fmt"
	"time"
)

// RetryWithBackoff retries op up to maxAttempts times with exponential
// backoff, checking ctx.Err() between attempts so cancellation is
// honored immediately.
//
// op returns (retry bool, err error). When retry is false, err is
// returned as-is (nil on success, non-nil on permanent failure). On
// exhaustion the last error is returned.
func RetryWithBackoff(
	ctx context.Context,
	maxAttempts int,
	baseBackoff time.Duration,
	op func(attempt int) (retry bool, err error),
) error {
	var lastErr error
	for attempt := range maxAttempts {
		if attempt > 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("retry aborted: %w", err)
			}
			time.Sleep(baseBackoff * time.Duration(1<<(attempt-1)))
		}

		retry, err := op(attempt)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}
		lastErr = err
	}
	return lastErr
}

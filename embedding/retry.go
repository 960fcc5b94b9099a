// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package embedding

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/poiesic/docent/ai"
)

// RetryableFunc reports whether a failed attempt may be repeated.
type RetryableFunc func(err error) bool

// Retry calls op up to maxAttempts times, waiting delay between attempts.
// It stops early when op succeeds, when retryable rejects the error or when
// ctx is done. A nil retryable means IsTransient.
func Retry(ctx context.Context, op func() error, maxAttempts int, delay time.Duration, retryable RetryableFunc) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	if retryable == nil {
		retryable = IsTransient
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := op()
		if err == nil || !retryable(err) || attempt == maxAttempts {
			if err == nil && attempt > 1 {
				slog.Debug("embedding succeeded after retry", "attempt", attempt)
			}
			return err
		}
		slog.Debug("embedding attempt failed", "attempt", attempt, "of", maxAttempts, "err", err)

		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsTransient is the default retry predicate. Unreachable providers, missing
// models, vectors of the wrong dimension and expired contexts are permanent.
// Anything else, an empty vector or a 5xx answer included, may succeed on
// another attempt.
func IsTransient(err error) bool {
	if err == nil || ai.IsUnavailable(err) || errors.Is(err, ai.ErrDimensionMismatch) {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

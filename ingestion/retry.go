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

package ingestion

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"time"

	"github.com/poiesic/vectorsink/core"
)

// permanentError stops RetryWithBackoff after the current attempt.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// RetryWithBackoff retries an operation with exponential backoff.
// maxAttempts: maximum number of attempts (must be > 0)
// baseDelay: base delay between retries (doubles on each retry)
// Returns the error from the last attempt if all attempts fail, or the
// unwrapped error as soon as an attempt returns one marked Permanent.
func RetryWithBackoff(ctx context.Context, operation func() error, maxAttempts int, baseDelay time.Duration) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}

		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}

		slog.Debug("operation failed, will retry", "attempt", attempt, "maxAttempts", maxAttempts, "err", lastErr)

		if attempt == maxAttempts {
			break
		}

		// baseDelay * 2^(attempt-1)
		delay := baseDelay
		for i := 1; i < attempt; i++ {
			delay *= 2
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}

// Retryable reports whether re-running an ingestion that failed with err
// could succeed. Provider and store failures qualify; invalid documents,
// wrong-length vectors and cancellation do not.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, ErrValidation), errors.Is(err, ErrDimensionMismatch):
		return false
	}
	return errors.Is(err, ErrProvider) || errors.Is(err, ErrStore)
}

// IngestWithRetry runs p.Ingest over source() until it succeeds, fails with
// a non-retryable error, or maxAttempts runs have been made. source is
// called once per attempt and must replay the same documents; batches
// committed by an earlier attempt are upserted again, which leaves the same
// rows. The returned report is the last attempt's, with Attempts set.
func IngestWithRetry(
	ctx context.Context,
	p *Pipeline,
	source func() iter.Seq[core.Document],
	maxAttempts int,
	baseDelay time.Duration,
) (*Report, error) {
	var (
		report   *Report
		attempts int
	)
	err := RetryWithBackoff(ctx, func() error {
		attempts++
		var err error
		report, err = p.Ingest(ctx, source())
		if err != nil && !Retryable(err) {
			return Permanent(err)
		}
		if err != nil {
			p.logger.Warn("ingestion attempt failed", "attempt", attempts, "err", err)
		}
		return err
	}, maxAttempts, baseDelay)

	if report == nil {
		report = &Report{}
	}
	report.Attempts = attempts
	return report, err
}

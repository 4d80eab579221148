// Package retry re-runs failed agent operations with exponential backoff.
//
// CLI agents fail in two distinct ways: transient upstream conditions
// (rate limits, overloaded backends, 5xx responses surfaced through the
// subprocess) that clear on their own, and permanent conditions (missing
// binary, canceled context, malformed session) that never will. A
// Classifier separates the two; only transient failures are retried.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/dvaldez/agentdrive"
)

// ErrExhausted reports that every allowed attempt failed. The last attempt's
// error is wrapped and reachable via errors.Is/As.
var ErrExhausted = errors.New("retry: attempts exhausted")

// Category classifies a failure for retry purposes.
type Category int

const (
	// Permanent failures are returned immediately without further attempts.
	Permanent Category = iota

	// Transient failures are retried until attempts run out.
	Transient
)

// Classifier decides whether an error is worth retrying.
type Classifier func(error) Category

// transientMarkers are substrings of upstream failure text that indicate a
// condition likely to clear on its own. Error bodies reach us as flattened
// subprocess output, so substring matching is the available signal.
var transientMarkers = []string{
	"429",
	"500",
	"502",
	"503",
	"529",
	"overloaded",
	"rate limit",
	"too many requests",
}

// DefaultClassifier treats context cancellation and engine unavailability as
// permanent, and known upstream failure markers as transient. Unknown errors
// are permanent: retrying a failure we cannot identify wastes attempts and
// hides bugs.
func DefaultClassifier(err error) Category {
	if err == nil {
		return Permanent
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Permanent
	}
	if errors.Is(err, agentdrive.ErrUnavailable) {
		return Permanent
	}
	text := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(text, marker) {
			return Transient
		}
	}
	return Permanent
}

// Policy controls attempt count and backoff shape.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// InitialBackoff is the delay before the second attempt.
	InitialBackoff time.Duration

	// MaxBackoff caps the delay between attempts.
	MaxBackoff time.Duration

	// Factor is the backoff multiplier per attempt.
	Factor float64

	// Jitter is the random fraction (0..1) added to each delay to avoid
	// synchronized retries.
	Jitter float64

	// Classify decides which errors are retried. Nil uses
	// DefaultClassifier.
	Classify Classifier
}

// Default returns the standard policy: 3 attempts, 1s initial backoff
// doubling to a 30s cap, 10% jitter.
func Default() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
		Factor:         2.0,
		Jitter:         0.1,
	}
}

// normalized fills zero fields with defaults so a partially specified
// policy behaves sensibly.
func (p Policy) normalized() Policy {
	d := Default()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = d.InitialBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = d.MaxBackoff
	}
	if p.Factor < 1 {
		p.Factor = d.Factor
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.Classify == nil {
		p.Classify = DefaultClassifier
	}
	return p
}

// backoff returns the delay before attempt n (0-based attempt that just
// failed), jittered.
func (p Policy) backoff(n int) time.Duration {
	d := float64(p.InitialBackoff) * math.Pow(p.Factor, float64(n))
	if ceil := float64(p.MaxBackoff); d > ceil {
		d = ceil
	}
	if p.Jitter > 0 {
		d += d * p.Jitter * rand.Float64()
	}
	return time.Duration(d)
}

// Do runs op, retrying transient failures per the policy. The context bounds
// the whole loop including backoff sleeps; cancellation during a sleep
// returns the context error wrapped over the last attempt's error.
func Do(ctx context.Context, p Policy, op func(context.Context) error) error {
	p = p.normalized()

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if p.Classify(lastErr) == Permanent {
			return lastErr
		}
		if attempt == p.MaxAttempts-1 {
			break
		}

		if err := sleep(ctx, p.backoff(attempt)); err != nil {
			return fmt.Errorf("%w (last attempt: %w)", err, lastErr)
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, p.MaxAttempts, lastErr)
}

// sleep waits for d or until the context is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

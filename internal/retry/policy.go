// Package retry applies backoff to transient failures.
package retry

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/docstage/internal/foundation/errors"
	"git.home.luguber.info/inful/docstage/internal/foundation/normalization"
	"git.home.luguber.info/inful/docstage/internal/logfields"
)

// Mode selects how the delay grows between attempts.
type Mode string

const (
	ModeFixed       Mode = "fixed"
	ModeLinear      Mode = "linear"
	ModeExponential Mode = "exponential"
)

var modes = normalization.NewEnum("retry mode", map[string]Mode{
	string(ModeFixed):       ModeFixed,
	string(ModeLinear):      ModeLinear,
	string(ModeExponential): ModeExponential,
}, ModeLinear)

// Policy encapsulates retry/backoff settings for transient failures.
// It is immutable after construction.
type Policy struct {
	Mode       Mode
	Initial    time.Duration // base delay
	Max        time.Duration // cap for growth
	MaxRetries int           // attempts after the first failure
}

// DefaultPolicy is linear from 250ms, capped at 5s, with two retries.
func DefaultPolicy() Policy {
	return Policy{Mode: ModeLinear, Initial: 250 * time.Millisecond, Max: 5 * time.Second, MaxRetries: 2}
}

// NewPolicy builds a policy; zero or unknown values fall back to the defaults.
func NewPolicy(mode string, initial, maxDelay time.Duration, maxRetries int) Policy {
	p := DefaultPolicy()
	p.Mode = modes.Normalize(mode)
	if maxRetries >= 0 {
		p.MaxRetries = maxRetries
	}
	if initial > 0 {
		p.Initial = initial
	}
	if maxDelay > 0 {
		p.Max = maxDelay
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	return p
}

// Delay returns the wait before the given retry (1-based).
func (p Policy) Delay(retry int) time.Duration {
	if retry <= 0 {
		return 0
	}
	var d time.Duration
	switch p.Mode {
	case ModeFixed:
		d = p.Initial
	case ModeExponential:
		d = p.Initial
		for i := 1; i < retry && d < p.Max; i++ {
			d *= 2
		}
	default:
		d = time.Duration(retry) * p.Initial
	}
	return min(d, p.Max)
}

// Validate ensures the policy can be applied.
func (p Policy) Validate() error {
	switch {
	case p.Initial <= 0:
		return errors.ValidationError("retry initial delay must be > 0").Build()
	case p.Max <= 0:
		return errors.ValidationError("retry max delay must be > 0").Build()
	case p.MaxRetries < 0:
		return errors.ValidationError("retry count cannot be negative").Build()
	}
	return nil
}

// Do calls fn until it succeeds, returns an error that cannot be retried, or the policy is
// exhausted. Only classified errors whose strategy allows it are retried.
func Do(ctx context.Context, p Policy, op string, fn func(context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		ce, ok := errors.AsClassified(err)
		if !ok || !ce.CanRetry() || attempt >= p.MaxRetries {
			return err
		}

		wait := p.Delay(attempt + 1)
		slog.Debug("Retrying after transient failure",
			logfields.Name(op),
			slog.Int("attempt", attempt+1),
			slog.Duration("wait", wait),
			logfields.Error(err))

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
	}
}

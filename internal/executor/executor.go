// Package executor runs bounded download attempts against an extraction
// engine, with class-dependent backoff between retries.
package executor

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/famomatic/ytcourier/internal/engine"
	"github.com/famomatic/ytcourier/internal/types"
)

const (
	// DefaultMaxAttempts bounds the retry loop.
	DefaultMaxAttempts = 3
	// DefaultRateLimitBase is the initial backoff after a rate-limit response.
	DefaultRateLimitBase = 30 * time.Second
	// DefaultTransientBase is the initial backoff after a transient block.
	DefaultTransientBase = 10 * time.Second
)

// Attempt records one download try for reporting.
type Attempt struct {
	Number    int
	StartedAt time.Time
	Duration  time.Duration
	Class     types.ErrorClass
	Err       error
}

// Config tunes the retry loop. The zero value picks the defaults.
type Config struct {
	// MaxAttempts caps the number of tries, including the first.
	MaxAttempts int
	// RateLimitBase and TransientBase seed the exponential backoff for
	// their respective error classes. Delay doubles per retry and is
	// capped at three times the base.
	RateLimitBase time.Duration
	TransientBase time.Duration
	// Identities rotates the outbound user agent between attempts. Empty
	// means the engine's default identity on every try.
	Identities []string
	// Sleep is swapped out in tests. Nil means a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (c Config) normalized() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.RateLimitBase <= 0 {
		c.RateLimitBase = DefaultRateLimitBase
	}
	if c.TransientBase <= 0 {
		c.TransientBase = DefaultTransientBase
	}
	if c.Sleep == nil {
		c.Sleep = waitBackoff
	}
	return c
}

// Executor drives an engine through the retry loop.
type Executor struct {
	engine engine.Engine
	cfg    Config
	logger logrus.FieldLogger
}

// New builds an executor around eng.
func New(eng engine.Engine, cfg Config, logger logrus.FieldLogger) *Executor {
	return &Executor{engine: eng, cfg: cfg.normalized(), logger: logger}
}

// Run fetches the selected formats into scratchDir, retrying retryable
// failures with class-dependent backoff. It returns the attempt history
// alongside the final outcome: nil on success, the permanent error as-is,
// or a RetriesExhaustedError once the attempt budget is spent.
func (e *Executor) Run(ctx context.Context, req types.VideoRequest, sel types.FormatSelection, scratchDir string) ([]Attempt, error) {
	attempts := make([]Attempt, 0, e.cfg.MaxAttempts)

	for i := 0; i < e.cfg.MaxAttempts; i++ {
		start := time.Now()
		err := e.engine.Fetch(ctx, engine.FetchRequest{
			URL:        req.SourceURL,
			Selection:  sel,
			Quality:    req.Quality,
			ScratchDir: scratchDir,
			UserAgent:  e.identityFor(i),
		})
		attempt := Attempt{
			Number:    i + 1,
			StartedAt: start,
			Duration:  time.Since(start),
			Err:       err,
		}
		if err == nil {
			attempts = append(attempts, attempt)
			return attempts, nil
		}

		attempt.Class = types.ClassOf(err)
		attempts = append(attempts, attempt)

		if e.logger != nil {
			e.logger.WithFields(logrus.Fields{
				"request_id": req.RequestID,
				"attempt":    attempt.Number,
				"class":      attempt.Class,
			}).WithError(err).Warn("download attempt failed")
		}

		if attempt.Class == types.ClassPermanent {
			return attempts, err
		}
		if i == e.cfg.MaxAttempts-1 {
			break
		}
		if err := e.cfg.Sleep(ctx, e.backoffFor(attempt.Class, i)); err != nil {
			return attempts, err
		}
	}

	return attempts, &RetriesExhaustedError{
		Attempts: len(attempts),
		Last:     attempts[len(attempts)-1].Err,
	}
}

func (e *Executor) identityFor(attempt int) string {
	if len(e.cfg.Identities) == 0 {
		return ""
	}
	return e.cfg.Identities[attempt%len(e.cfg.Identities)]
}

// backoffFor doubles the class base per completed attempt, capped at three
// times the base. Rate limits wait longer than ordinary transient blocks.
func (e *Executor) backoffFor(class types.ErrorClass, attempt int) time.Duration {
	base := e.cfg.TransientBase
	if class == types.ClassRateLimited {
		base = e.cfg.RateLimitBase
	}
	d := base << uint(attempt)
	if max := 3 * base; d > max {
		d = max
	}
	return d
}

// waitBackoff sleeps for d unless ctx is cancelled first.
func waitBackoff(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

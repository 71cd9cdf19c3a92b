// File: internal/pacing/pacer.go
package pacing

import (
	"context"
	"math/rand"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Pacer computes and awaits delays between steps, actions and tasks. All
// waits are cooperative: they respect context cancellation and never busy
// spin.
type Pacer struct {
	settings *Settings
	logger   *zap.Logger
	limiter  *rate.Limiter

	// uniform and sleep are swapped out in tests.
	uniform func(lo, hi float64) float64
	sleep   func(ctx context.Context, d time.Duration) error
}

// New creates a Pacer over a settings cache. stepsPerMinute caps how many
// step waits may be granted per minute; zero disables the ceiling.
func New(settings *Settings, stepsPerMinute float64, logger *zap.Logger) *Pacer {
	p := &Pacer{
		settings: settings,
		logger:   logger.Named("pacer"),
		uniform: func(lo, hi float64) float64 {
			return lo + rand.Float64()*(hi-lo)
		},
		sleep: contextSleep,
	}
	if stepsPerMinute > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(stepsPerMinute/60.0), 1)
	}
	return p
}

// Apply awaits the configured delay for a category. Malformed or missing
// configuration is logged and treated as "no delay"; the only error returned
// is context cancellation.
func (p *Pacer) Apply(ctx context.Context, category Category) error {
	duration := p.delayFor(category)
	if duration <= 0 {
		return nil
	}
	return p.sleep(ctx, duration)
}

// WaitStep blocks until the step-rate ceiling admits another iteration. With
// no ceiling configured it returns immediately.
func (p *Pacer) WaitStep(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

// delayFor resolves the duration to wait for a category from the cached
// settings. It returns zero for any configuration that cannot or should not
// produce a delay.
func (p *Pacer) delayFor(category Category) time.Duration {
	delays, ok := p.settings.Get(category)
	if !ok {
		p.logger.Warn("No cached settings found for delay category", zap.String("category", string(category)))
		return 0
	}

	if delays.EnableRandom {
		minMinutes, errMin := strconv.ParseFloat(delays.MinDelayMinutes, 64)
		maxMinutes, errMax := strconv.ParseFloat(delays.MaxDelayMinutes, 64)
		if errMin != nil || errMax != nil {
			p.logger.Warn("Invalid random delay bounds, expected floats; skipping delay",
				zap.String("category", string(category)),
				zap.String("min", delays.MinDelayMinutes),
				zap.String("max", delays.MaxDelayMinutes),
			)
			return 0
		}

		loSeconds := minMinutes * 60
		hiSeconds := maxMinutes * 60
		if loSeconds > hiSeconds {
			loSeconds, hiSeconds = hiSeconds, loSeconds
		}
		if hiSeconds <= 0 {
			p.logger.Info("Random delay is enabled but min/max values result in no delay",
				zap.String("category", string(category)))
			return 0
		}

		chosenSeconds := p.uniform(loSeconds, hiSeconds)
		p.logger.Info("Applying random delay",
			zap.String("category", string(category)),
			zap.Float64("min_seconds", loSeconds),
			zap.Float64("max_seconds", hiSeconds),
			zap.Float64("chosen_seconds", chosenSeconds),
		)
		return time.Duration(chosenSeconds * float64(time.Second))
	}

	minutes, err := strconv.ParseFloat(delays.DelayMinutes, 64)
	if err != nil {
		p.logger.Warn("Invalid fixed delay value, expected a float; skipping delay",
			zap.String("category", string(category)),
			zap.String("delay_minutes", delays.DelayMinutes),
		)
		return 0
	}
	if minutes <= 0 {
		return 0
	}

	seconds := minutes * 60
	p.logger.Info("Waiting for fixed delay",
		zap.String("category", string(category)),
		zap.Float64("seconds", seconds),
	)
	return time.Duration(seconds * float64(time.Second))
}

// contextSleep waits for the duration or until the context is cancelled,
// whichever comes first.
func contextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

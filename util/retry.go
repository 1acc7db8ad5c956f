// Copyright 2024 The nitrohost Authors
// SPDX-License-Identifier: MIT

package util

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy controls how calls against a flaky external collaborator
// are reattempted. It is plain data so it can live in configuration;
// the zero value retries forever with no delay between attempts.
type RetryPolicy struct {
	// MinSleep is the delay before the second attempt.
	MinSleep time.Duration `yaml:"minSleep"`
	// MaxSleep caps the delay between attempts. When MaxSleep equals
	// MinSleep every delay is fixed; otherwise the delay doubles per
	// attempt up to MaxSleep.
	MaxSleep time.Duration `yaml:"maxSleep"`
	// MaxAttempts bounds the total number of attempts. Zero means
	// retry without bound.
	MaxAttempts int `yaml:"maxAttempts"`

	clock Clock
}

// Do repeatedly calls fun until it succeeds, the policy's attempts are
// exhausted, or ctx is cancelled.
func (p RetryPolicy) Do(ctx context.Context, fun func() error) error {
	_, err := RetrySupplier(ctx, p, func() (struct{}, error) { return struct{}{}, fun() })
	return err
}

// RetrySupplier repeatedly calls fun to produce a value under policy p.
// The error from the final attempt is wrapped in the returned error.
func RetrySupplier[T any](ctx context.Context, p RetryPolicy, fun func() (T, error)) (T, error) {
	clock := p.clock
	if clock == nil {
		clock = RealClock
	}
	start := clock.Now()
	sleep := time.Duration(0)
	var res T
	var err error
	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case <-time.After(sleep):
		}
		if res, err = fun(); err == nil {
			return res, nil
		}
		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			return res, fmt.Errorf("giving up after %d attempts over %v: %w", attempt, clock.Now().Sub(start), err)
		}
		sleep = Clamp(sleep*2, p.MinSleep, p.MaxSleep)
	}
}

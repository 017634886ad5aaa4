// Copyright (C) 2026 Quan Ho (github.com/quanho114)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding attribution requirements.

// Package ttl reclaims idle conversation sessions.
//
// Sessions live in memory, so an abandoned conversation holds its history
// until something evicts it. The reaper sweeps on a fixed interval and
// evicts every session that has been idle past the configured threshold.
// The dataset and the corpus-scoped analysis state are never touched.
package ttl

import (
	"context"
	"log/slog"
	"time"
)

// ReapFunc evicts sessions idle longer than the cutoff and returns the
// evicted session ids. Function-typed so tests can inject a fake and the
// reaper stays decoupled from the session owner.
type ReapFunc func(olderThan time.Duration) []string

// Config controls the sweep cadence.
//
// # Fields
//
//   - Interval: Time between sweeps. Must be positive.
//   - IdleAfter: Sessions idle longer than this are evicted. Must be positive.
type Config struct {
	Interval  time.Duration
	IdleAfter time.Duration
}

// DefaultConfig sweeps every 10 minutes and evicts after an hour idle.
func DefaultConfig() Config {
	return Config{
		Interval:  10 * time.Minute,
		IdleAfter: time.Hour,
	}
}

// Reaper runs the periodic sweep.
//
// # Thread Safety
//
// Run owns the loop; one Run per Reaper. The ReapFunc must be safe for
// concurrent use with the session owner's own operations.
type Reaper struct {
	cfg  Config
	reap ReapFunc
}

// NewReaper validates the config, falling back to defaults for
// non-positive durations.
func NewReaper(cfg Config, reap ReapFunc) *Reaper {
	defaults := DefaultConfig()
	if cfg.Interval <= 0 {
		slog.Warn("ttl.reaper: invalid interval, using default", "default", defaults.Interval)
		cfg.Interval = defaults.Interval
	}
	if cfg.IdleAfter <= 0 {
		slog.Warn("ttl.reaper: invalid idle threshold, using default", "default", defaults.IdleAfter)
		cfg.IdleAfter = defaults.IdleAfter
	}
	return &Reaper{cfg: cfg, reap: reap}
}

// Run sweeps until the context is canceled. Call it on its own goroutine.
func (r *Reaper) Run(ctx context.Context) {
	slog.Info("ttl.reaper: starting",
		"interval", r.cfg.Interval,
		"idle_after", r.cfg.IdleAfter,
	)
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("ttl.reaper: stopping", "reason", ctx.Err())
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Sweep runs one eviction pass. Exposed so callers can force a pass
// without waiting for the ticker.
func (r *Reaper) Sweep() int {
	evicted := r.reap(r.cfg.IdleAfter)
	if len(evicted) > 0 {
		slog.Info("ttl.reaper: evicted idle sessions",
			"count", len(evicted),
			"session_ids", evicted,
		)
	}
	return len(evicted)
}

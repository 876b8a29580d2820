// Package scheduler chooses between skipping, partial and full panel refreshes.
package scheduler

import (
	"time"

	"github.com/genricoloni/nowink/internal/domain"
)

// DefaultFullRefreshInterval bounds how long the panel may go without a full refresh
const DefaultFullRefreshInterval = 600 * time.Second

// Scheduler is a pure decision function over a fixed threshold
type Scheduler struct {
	threshold time.Duration
}

// New creates a scheduler. A non-positive threshold falls back to the default.
func New(threshold time.Duration) *Scheduler {
	if threshold <= 0 {
		threshold = DefaultFullRefreshInterval
	}
	return &Scheduler{threshold: threshold}
}

// Threshold returns the anti-ghosting interval in use
func (s *Scheduler) Threshold() time.Duration {
	return s.threshold
}

// Decide picks the refresh mode for a cycle at time now.
// A zero lastFull means the panel has never been fully refreshed.
func (s *Scheduler) Decide(changed bool, lastFull, now time.Time) domain.RefreshMode {
	if s.Due(lastFull, now) {
		return domain.RefreshFull
	}
	if changed {
		return domain.RefreshPartial
	}
	return domain.RefreshSkip
}

// Due reports whether the full-refresh threshold has elapsed
func (s *Scheduler) Due(lastFull, now time.Time) bool {
	if lastFull.IsZero() {
		return true
	}
	return now.Sub(lastFull) >= s.threshold
}

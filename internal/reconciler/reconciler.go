// Package reconciler keeps moderation views consistent with the store in
// the absence of guaranteed push notification: it refetches the event's
// submission list on a fixed cadence, recomputes the pending and approved
// projections, and replaces the held view only when a structural difference
// is detected. The diff-before-replace rule avoids needless view churn and
// lets an in-progress local edit survive a background refresh when nothing
// relevant changed.
package reconciler

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/crowdcue/backend/internal/models"
)

// Projection holds the two moderator list views.
type Projection struct {
	// Pending is every submission in the event, newest first.
	Pending []models.Submission
	// Approved is the approved subset, queued first, then newest first.
	Approved []models.Submission
}

// Project computes both list views from a raw submission list.
func Project(subs []models.Submission) Projection {
	pending := append([]models.Submission(nil), subs...)
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].CreatedAt.After(pending[j].CreatedAt)
	})

	var approved []models.Submission
	for _, s := range pending {
		if s.Status == models.StatusApproved {
			approved = append(approved, s)
		}
	}
	sort.SliceStable(approved, func(i, j int) bool {
		if approved[i].IsQueued() != approved[j].IsQueued() {
			return approved[i].IsQueued()
		}
		return approved[i].CreatedAt.After(approved[j].CreatedAt)
	})

	return Projection{Pending: pending, Approved: approved}
}

// Changed reports a structural difference between two projections: a
// submission appeared or disappeared, or any submission's status or
// position moved. Text-only edits do not count as structural.
func Changed(old, next Projection) bool {
	if len(old.Pending) != len(next.Pending) {
		return true
	}
	prev := make(map[string]models.Submission, len(old.Pending))
	for _, s := range old.Pending {
		prev[s.ID] = s
	}
	for _, s := range next.Pending {
		before, ok := prev[s.ID]
		if !ok {
			return true
		}
		if before.Status != s.Status || before.Position != s.Position {
			return true
		}
	}
	return false
}

// ListFunc fetches the full submission list for an event.
type ListFunc func(ctx context.Context, eventID string) ([]models.Submission, error)

// Watcher runs the refresh loop for one event.
type Watcher struct {
	eventID  string
	interval time.Duration
	list     ListFunc
	onChange func(Projection)
	logger   *zap.Logger

	inFlight atomic.Bool
	mu       sync.RWMutex
	current  Projection
	primed   bool
}

// NewWatcher creates a watcher. onChange is invoked from the loop goroutine
// whenever the view is replaced, including the first successful fetch.
func NewWatcher(eventID string, interval time.Duration, list ListFunc, onChange func(Projection), logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		eventID:  eventID,
		interval: interval,
		list:     list,
		onChange: onChange,
		logger:   logger,
	}
}

// Run ticks until ctx is cancelled. The first refresh happens immediately.
func (w *Watcher) Run(ctx context.Context) {
	w.refresh(ctx)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

// Current returns the last accepted projection.
func (w *Watcher) Current() Projection {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// refresh performs one fetch-project-diff cycle. A fetch still in flight
// from a previous tick makes this one a no-op, so a slow store cannot pile
// up concurrent fetches. Fetch errors retain the previous view.
func (w *Watcher) refresh(ctx context.Context) {
	if !w.inFlight.CompareAndSwap(false, true) {
		return
	}
	defer w.inFlight.Store(false)

	subs, err := w.list(ctx, w.eventID)
	if err != nil {
		w.logger.Warn("moderation refresh failed", zap.String("event_id", w.eventID), zap.Error(err))
		return
	}
	next := Project(subs)

	w.mu.Lock()
	replace := !w.primed || Changed(w.current, next)
	if replace {
		w.current = next
		w.primed = true
	}
	w.mu.Unlock()

	if replace && w.onChange != nil {
		w.onChange(next)
	}
}

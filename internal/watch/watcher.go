package watch

import (
	"context"
	"time"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// CompletionEvent is emitted exactly once when a submission is observed
// moving into the completed state between two snapshots.
type CompletionEvent struct {
	SubmissionID string
	ProductTitle string
	Submission   model.Submission
}

// DiffCompleted compares two submission snapshots by ID and returns the
// submissions that transitioned into completed. A submission only present in
// next is not a transition; the forward-only status invariant guarantees the
// same transition cannot recur, so replacing the snapshot wholesale after
// diffing yields exactly-once events.
func DiffCompleted(prev, next []model.Submission) []CompletionEvent {
	if len(prev) == 0 || len(next) == 0 {
		return nil
	}
	prevByID := make(map[string]model.Submission, len(prev))
	for _, s := range prev {
		prevByID[s.ID] = s
	}

	var events []CompletionEvent
	for _, s := range next {
		old, ok := prevByID[s.ID]
		if !ok {
			continue
		}
		if old.Status != model.StatusCompleted && s.Status == model.StatusCompleted {
			events = append(events, CompletionEvent{
				SubmissionID: s.ID,
				ProductTitle: s.ProductTitle,
				Submission:   s,
			})
		}
	}
	return events
}

// Watcher polls a user's submissions on a fixed interval and publishes
// completion transitions. It replaces the dashboard's client-side timer: the
// diff is a pure function, the loop is cancellable, and a failed read keeps
// the previous snapshot so transient store errors never erase pending state
// or fire spurious notifications.
type Watcher struct {
	repo     repository.SubmissionRepository
	userID   string
	interval time.Duration
	events   chan CompletionEvent
	snapshot []model.Submission
	logger   zerolog.Logger
}

// NewWatcher creates a watcher for one user's submissions.
func NewWatcher(repo repository.SubmissionRepository, userID string, interval time.Duration, logger zerolog.Logger) *Watcher {
	return &Watcher{
		repo:     repo,
		userID:   userID,
		interval: interval,
		events:   make(chan CompletionEvent, 16),
		logger:   logger.With().Str("service", "Watcher").Str("user_id", userID).Logger(),
	}
}

// Events returns the channel completion notifications are delivered on. The
// channel is closed when the watcher stops.
func (w *Watcher) Events() <-chan CompletionEvent {
	return w.events
}

// Run polls until ctx is cancelled. It takes an initial snapshot
// immediately, then ticks on the fixed interval with no backoff or jitter.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.events)

	w.poll(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug().Msg("Watcher stopped")
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Watcher) poll(ctx context.Context) {
	next, err := w.repo.GetSubmissionsByUserID(ctx, w.userID)
	if err != nil {
		// Keep the prior snapshot: a transient read failure must not make a
		// later successful read look like a fresh transition.
		w.logger.Error().Err(err).Msg("Failed to refresh submissions; keeping previous snapshot")
		return
	}

	for _, ev := range DiffCompleted(w.snapshot, next) {
		w.logger.Info().Str("submission_id", ev.SubmissionID).Msg("Submission completed")
		select {
		case w.events <- ev:
		default:
			// A slow consumer drops the oldest-style guarantee rather than
			// blocking the poll loop.
			w.logger.Warn().Str("submission_id", ev.SubmissionID).Msg("Completion event dropped: consumer not keeping up")
		}
	}
	w.snapshot = next
}

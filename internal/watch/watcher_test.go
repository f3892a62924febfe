package watch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"app/internal/model"

	"github.com/rs/zerolog"
)

// snapshotRepo serves canned submission snapshots in sequence, repeating the
// last one once exhausted.
type snapshotRepo struct {
	mu        sync.Mutex
	snapshots [][]model.Submission
	errs      []error
	calls     int
}

func (r *snapshotRepo) GetSubmissionsByUserID(_ context.Context, _ string) ([]model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.calls
	r.calls++
	if i < len(r.errs) && r.errs[i] != nil {
		return nil, r.errs[i]
	}
	if i >= len(r.snapshots) {
		i = len(r.snapshots) - 1
	}
	return r.snapshots[i], nil
}

func (r *snapshotRepo) CreateSubmission(context.Context, *model.Submission) error { return nil }
func (r *snapshotRepo) GetSubmissionByID(context.Context, string) (*model.Submission, error) {
	return nil, nil
}
func (r *snapshotRepo) CountSubmissionsSince(context.Context, string, time.Time) (int, error) {
	return 0, nil
}
func (r *snapshotRepo) UpdateSubmissionStatus(context.Context, string, model.StatusUpdate) (*model.Submission, error) {
	return nil, nil
}
func (r *snapshotRepo) DeleteSubmission(context.Context, string) error { return nil }

func sub(id string, status model.SubmissionStatus) model.Submission {
	return model.Submission{ID: id, UserID: "u1", ProductTitle: "title-" + id, Status: status}
}

func TestDiffCompletedDetectsTransition(t *testing.T) {
	prev := []model.Submission{sub("a", model.StatusProcessing), sub("b", model.StatusPending)}
	next := []model.Submission{sub("a", model.StatusCompleted), sub("b", model.StatusPending)}

	events := DiffCompleted(prev, next)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].SubmissionID != "a" || events[0].ProductTitle != "title-a" {
		t.Fatalf("event = %+v, want submission a", events[0])
	}
}

func TestDiffCompletedIgnoresNonTransitions(t *testing.T) {
	cases := []struct {
		name string
		prev []model.Submission
		next []model.Submission
	}{
		{
			"already completed",
			[]model.Submission{sub("a", model.StatusCompleted)},
			[]model.Submission{sub("a", model.StatusCompleted)},
		},
		{
			"completed but absent from previous snapshot",
			[]model.Submission{sub("b", model.StatusPending)},
			[]model.Submission{sub("a", model.StatusCompleted), sub("b", model.StatusPending)},
		},
		{
			"failed is not a completion",
			[]model.Submission{sub("a", model.StatusProcessing)},
			[]model.Submission{sub("a", model.StatusFailed)},
		},
		{
			"empty previous snapshot",
			nil,
			[]model.Submission{sub("a", model.StatusCompleted)},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if events := DiffCompleted(c.prev, c.next); len(events) != 0 {
				t.Fatalf("got %d events, want none", len(events))
			}
		})
	}
}

func TestWatcherEmitsExactlyOnce(t *testing.T) {
	repo := &snapshotRepo{
		snapshots: [][]model.Submission{
			{sub("a", model.StatusProcessing)},
			{sub("a", model.StatusCompleted)},
			{sub("a", model.StatusCompleted)},
		},
	}
	w := NewWatcher(repo, "u1", time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	select {
	case ev := <-w.Events():
		if ev.SubmissionID != "a" {
			t.Fatalf("event for %s, want a", ev.SubmissionID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for completion event")
	}

	// The same terminal row must not fire again on later polls.
	select {
	case ev, ok := <-w.Events():
		if ok {
			t.Fatalf("unexpected second event for %s", ev.SubmissionID)
		}
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	<-done
	if _, ok := <-w.Events(); ok {
		t.Fatal("events channel must be closed after Run returns")
	}
}

func TestWatcherKeepsSnapshotAcrossReadFailure(t *testing.T) {
	// Poll 1 sees processing, poll 2 fails, poll 3 sees completed. The failed
	// poll must not reset the snapshot, so the transition still fires once.
	repo := &snapshotRepo{
		snapshots: [][]model.Submission{
			{sub("a", model.StatusProcessing)},
			nil,
			{sub("a", model.StatusCompleted)},
		},
		errs: []error{nil, errors.New("store down"), nil},
	}
	w := NewWatcher(repo, "u1", time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	select {
	case ev := <-w.Events():
		if ev.SubmissionID != "a" {
			t.Fatalf("event for %s, want a", ev.SubmissionID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for completion event after transient failure")
	}
}

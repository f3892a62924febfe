package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// fakeSubmissionRepo implements repository.SubmissionRepository in memory.
type fakeSubmissionRepo struct {
	submissions map[string]*model.Submission
	nextID      int
	countSince  int
	countErr    error
	lastSince   time.Time
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{submissions: make(map[string]*model.Submission)}
}

func (f *fakeSubmissionRepo) CreateSubmission(_ context.Context, s *model.Submission) error {
	f.nextID++
	s.ID = fmt.Sprintf("sub-%d", f.nextID)
	s.Status = model.StatusPending
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	cp := *s
	f.submissions[s.ID] = &cp
	return nil
}

func (f *fakeSubmissionRepo) GetSubmissionByID(_ context.Context, id string) (*model.Submission, error) {
	s, ok := f.submissions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSubmissionRepo) GetSubmissionsByUserID(_ context.Context, userID string) ([]model.Submission, error) {
	var out []model.Submission
	for _, s := range f.submissions {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSubmissionRepo) CountSubmissionsSince(_ context.Context, _ string, since time.Time) (int, error) {
	f.lastSince = since
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.countSince, nil
}

func (f *fakeSubmissionRepo) UpdateSubmissionStatus(_ context.Context, id string, upd model.StatusUpdate) (*model.Submission, error) {
	s, ok := f.submissions[id]
	if !ok {
		return nil, repository.ErrSubmissionNotFound
	}
	s.Status = upd.Status
	if upd.VideoURL != nil {
		s.VideoURL = upd.VideoURL
	}
	if upd.ErrorMessage != nil {
		s.ErrorMessage = upd.ErrorMessage
	}
	s.UpdatedAt = time.Now()
	cp := *s
	return &cp, nil
}

func (f *fakeSubmissionRepo) DeleteSubmission(_ context.Context, id string) error {
	s, ok := f.submissions[id]
	if !ok {
		return repository.ErrSubmissionNotFound
	}
	if s.Status != model.StatusPending {
		return repository.ErrSubmissionNotPending
	}
	delete(f.submissions, id)
	return nil
}

// fakeTrigger records trigger deliveries.
type fakeTrigger struct {
	delivered chan string
	err       error
}

func newFakeTrigger() *fakeTrigger {
	return &fakeTrigger{delivered: make(chan string, 8)}
}

func (f *fakeTrigger) Trigger(_ context.Context, sub *model.Submission) error {
	f.delivered <- sub.ID
	return f.err
}

func newSubmissionService(repo *fakeSubmissionRepo, trigger *fakeTrigger) SubmissionService {
	ent := NewEntitlementService(repo, zerolog.Nop())
	return NewSubmissionService(repo, ent, trigger, zerolog.Nop())
}

func TestCreateSubmissionValidation(t *testing.T) {
	repo := newFakeSubmissionRepo()
	svc := newSubmissionService(repo, newFakeTrigger())

	cases := []struct {
		name string
		sub  model.Submission
		want error
	}{
		{"blank title", model.Submission{UserID: "u1", ProductTitle: "  ", UserPrompt: "p"}, ErrProductTitleRequired},
		{"blank prompt", model.Submission{UserID: "u1", ProductTitle: "t", UserPrompt: "\t"}, ErrUserPromptRequired},
		{"oversized image", model.Submission{UserID: "u1", ProductTitle: "t", UserPrompt: "p", ImageBase64: strings.Repeat("A", 8*1024*1024)}, ErrImageTooLarge},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), &c.sub, model.TierStarter)
			if !errors.Is(err, c.want) {
				t.Fatalf("Create() error = %v, want %v", err, c.want)
			}
		})
	}
	if len(repo.submissions) != 0 {
		t.Fatalf("validation failures must not write to the store, found %d rows", len(repo.submissions))
	}
}

func TestCreateSubmissionQuotaGateBlocksBeforeWrite(t *testing.T) {
	repo := newFakeSubmissionRepo()
	repo.countSince = 5 // starter limit already consumed today
	svc := newSubmissionService(repo, newFakeTrigger())

	sub := &model.Submission{UserID: "u1", ProductTitle: "Widget", UserPrompt: "make it shine"}
	_, err := svc.Create(context.Background(), sub, model.TierStarter)
	if !errors.Is(err, ErrSubmissionLimitReached) {
		t.Fatalf("Create() error = %v, want ErrSubmissionLimitReached", err)
	}
	if len(repo.submissions) != 0 {
		t.Fatal("blocked create must not write to the store")
	}
}

func TestCreateSubmissionFiresTrigger(t *testing.T) {
	repo := newFakeSubmissionRepo()
	trigger := newFakeTrigger()
	svc := newSubmissionService(repo, trigger)

	sub := &model.Submission{UserID: "u1", ProductTitle: "Widget", UserPrompt: "make it shine", TemplateStyle: "modern"}
	created, err := svc.Create(context.Background(), sub, model.TierPro)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID == "" || created.Status != model.StatusPending {
		t.Fatalf("created submission = %+v, want pending with id", created)
	}

	select {
	case id := <-trigger.delivered:
		if id != created.ID {
			t.Fatalf("trigger delivered for %s, want %s", id, created.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for generation trigger")
	}
}

func TestCreateSubmissionSurvivesTriggerFailure(t *testing.T) {
	repo := newFakeSubmissionRepo()
	trigger := newFakeTrigger()
	trigger.err = errors.New("engine unreachable")
	svc := newSubmissionService(repo, trigger)

	sub := &model.Submission{UserID: "u1", ProductTitle: "Widget", UserPrompt: "make it shine"}
	if _, err := svc.Create(context.Background(), sub, model.TierPro); err != nil {
		t.Fatalf("Create() must not fail on trigger error, got %v", err)
	}
	<-trigger.delivered
	if len(repo.submissions) != 1 {
		t.Fatal("submission must remain persisted after trigger failure")
	}
}

func TestDeleteSubmissionPreconditions(t *testing.T) {
	repo := newFakeSubmissionRepo()
	svc := newSubmissionService(repo, newFakeTrigger())

	pending := &model.Submission{UserID: "u1", ProductTitle: "a", UserPrompt: "b"}
	_ = repo.CreateSubmission(context.Background(), pending)
	processing := &model.Submission{UserID: "u1", ProductTitle: "c", UserPrompt: "d"}
	_ = repo.CreateSubmission(context.Background(), processing)
	repo.submissions[processing.ID].Status = model.StatusProcessing

	if err := svc.Delete(context.Background(), "u1", processing.ID); !errors.Is(err, repository.ErrSubmissionNotPending) {
		t.Fatalf("deleting a processing submission: error = %v, want ErrSubmissionNotPending", err)
	}
	if err := svc.Delete(context.Background(), "u1", "missing"); !errors.Is(err, repository.ErrSubmissionNotFound) {
		t.Fatalf("deleting a missing submission: error = %v, want ErrSubmissionNotFound", err)
	}
	if err := svc.Delete(context.Background(), "u2", pending.ID); !errors.Is(err, repository.ErrSubmissionNotFound) {
		t.Fatalf("deleting another user's submission: error = %v, want ErrSubmissionNotFound", err)
	}

	if err := svc.Delete(context.Background(), "u1", pending.ID); err != nil {
		t.Fatalf("deleting a pending submission: error = %v", err)
	}
	list, _ := svc.List(context.Background(), "u1")
	for _, s := range list {
		if s.ID == pending.ID {
			t.Fatal("deleted submission still listed")
		}
	}
}

func TestApplyCompletionHappyPath(t *testing.T) {
	repo := newFakeSubmissionRepo()
	svc := newSubmissionService(repo, newFakeTrigger())

	sub := &model.Submission{UserID: "u1", ProductTitle: "a", UserPrompt: "b"}
	_ = repo.CreateSubmission(context.Background(), sub)

	updated, err := svc.ApplyCompletion(context.Background(), sub.ID, "completed", "https://cdn.example/video.mp4", "")
	if err != nil {
		t.Fatalf("ApplyCompletion() error = %v", err)
	}
	if updated.Status != model.StatusCompleted {
		t.Fatalf("status = %s, want completed", updated.Status)
	}
	if updated.VideoURL == nil || *updated.VideoURL != "https://cdn.example/video.mp4" {
		t.Fatalf("video_url = %v, want set", updated.VideoURL)
	}
}

func TestApplyCompletionTerminalRedeliveryIsNoOp(t *testing.T) {
	repo := newFakeSubmissionRepo()
	svc := newSubmissionService(repo, newFakeTrigger())

	sub := &model.Submission{UserID: "u1", ProductTitle: "a", UserPrompt: "b"}
	_ = repo.CreateSubmission(context.Background(), sub)

	first, err := svc.ApplyCompletion(context.Background(), sub.ID, "completed", "https://cdn.example/v.mp4", "")
	if err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	second, err := svc.ApplyCompletion(context.Background(), sub.ID, "completed", "https://cdn.example/other.mp4", "late redelivery")
	if err != nil {
		t.Fatalf("redelivery must succeed, got %v", err)
	}
	if second.Status != model.StatusCompleted {
		t.Fatalf("redelivery status = %s, want completed", second.Status)
	}
	if *second.VideoURL != *first.VideoURL {
		t.Fatalf("redelivery changed video_url from %s to %s", *first.VideoURL, *second.VideoURL)
	}
	if second.ErrorMessage != nil {
		t.Fatal("redelivery must not write an error message to a terminal row")
	}
}

func TestApplyCompletionBackwardDeliveryIgnored(t *testing.T) {
	repo := newFakeSubmissionRepo()
	svc := newSubmissionService(repo, newFakeTrigger())

	sub := &model.Submission{UserID: "u1", ProductTitle: "a", UserPrompt: "b"}
	_ = repo.CreateSubmission(context.Background(), sub)
	repo.submissions[sub.ID].Status = model.StatusProcessing

	got, err := svc.ApplyCompletion(context.Background(), sub.ID, "pending", "", "")
	if err != nil {
		t.Fatalf("backward delivery must be absorbed, got %v", err)
	}
	if got.Status != model.StatusProcessing {
		t.Fatalf("status regressed to %s", got.Status)
	}
}

func TestApplyCompletionDefaultsAndSentinels(t *testing.T) {
	repo := newFakeSubmissionRepo()
	svc := newSubmissionService(repo, newFakeTrigger())

	sub := &model.Submission{UserID: "u1", ProductTitle: "a", UserPrompt: "b"}
	_ = repo.CreateSubmission(context.Background(), sub)

	// Missing status defaults to processing; "Success" is never persisted.
	got, err := svc.ApplyCompletion(context.Background(), sub.ID, "", "", "Success")
	if err != nil {
		t.Fatalf("ApplyCompletion() error = %v", err)
	}
	if got.Status != model.StatusProcessing {
		t.Fatalf("status = %s, want processing", got.Status)
	}
	if got.ErrorMessage != nil {
		t.Fatal("the Success sentinel must not be stored as an error message")
	}

	if _, err := svc.ApplyCompletion(context.Background(), "missing", "completed", "", ""); !errors.Is(err, repository.ErrSubmissionNotFound) {
		t.Fatalf("unknown id: error = %v, want ErrSubmissionNotFound", err)
	}
	if _, err := svc.ApplyCompletion(context.Background(), sub.ID, "rendering", "", ""); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("bad status: error = %v, want ErrInvalidStatus", err)
	}
}

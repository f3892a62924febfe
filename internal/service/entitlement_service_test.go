package service

import (
	"context"
	"errors"
	"testing"

	"app/internal/model"

	"github.com/rs/zerolog"
)

func TestRemainingSubmissionsProIsUnlimited(t *testing.T) {
	repo := newFakeSubmissionRepo()
	repo.countSince = 9999
	svc := NewEntitlementService(repo, zerolog.Nop())

	got, err := svc.RemainingSubmissions(context.Background(), "u1", model.TierPro)
	if err != nil {
		t.Fatalf("RemainingSubmissions() error = %v", err)
	}
	if got != UnlimitedSubmissions {
		t.Fatalf("pro remaining = %d, want %d regardless of usage", got, UnlimitedSubmissions)
	}
}

func TestRemainingSubmissionsStarterClamps(t *testing.T) {
	cases := []struct {
		used int
		want int
	}{
		{0, 5},
		{3, 2},
		{5, 0},
		{7, 0}, // over-consumption never goes negative
	}
	for _, c := range cases {
		repo := newFakeSubmissionRepo()
		repo.countSince = c.used
		svc := NewEntitlementService(repo, zerolog.Nop())

		got, err := svc.RemainingSubmissions(context.Background(), "u1", model.TierStarter)
		if err != nil {
			t.Fatalf("RemainingSubmissions() error = %v", err)
		}
		if got != c.want {
			t.Errorf("starter with %d used: remaining = %d, want %d", c.used, got, c.want)
		}
	}
}

func TestRemainingSubmissionsCountsFromLocalMidnight(t *testing.T) {
	repo := newFakeSubmissionRepo()
	svc := NewEntitlementService(repo, zerolog.Nop())

	if _, err := svc.RemainingSubmissions(context.Background(), "u1", model.TierCreator); err != nil {
		t.Fatalf("RemainingSubmissions() error = %v", err)
	}
	since := repo.lastSince
	if since.Hour() != 0 || since.Minute() != 0 || since.Second() != 0 || since.Nanosecond() != 0 {
		t.Fatalf("count window starts at %v, want local midnight", since)
	}
}

func TestCheckSubmissionAllowedFailsClosed(t *testing.T) {
	repo := newFakeSubmissionRepo()
	repo.countErr = errors.New("store down")
	svc := NewEntitlementService(repo, zerolog.Nop())

	ent := svc.CheckSubmissionAllowed(context.Background(), "u1", model.TierCreator)
	if ent.Allowed || ent.Remaining != 0 {
		t.Fatalf("entitlement on store failure = %+v, want allowed=false remaining=0", ent)
	}
}

func TestCheckSubmissionAllowed(t *testing.T) {
	repo := newFakeSubmissionRepo()
	repo.countSince = 5
	svc := NewEntitlementService(repo, zerolog.Nop())

	if ent := svc.CheckSubmissionAllowed(context.Background(), "u1", model.TierStarter); ent.Allowed {
		t.Fatalf("starter at limit: entitlement = %+v, want allowed=false", ent)
	}
	if ent := svc.CheckSubmissionAllowed(context.Background(), "u1", model.TierPro); !ent.Allowed || ent.Remaining != UnlimitedSubmissions {
		t.Fatalf("pro: entitlement = %+v, want allowed=true remaining=-1", ent)
	}

	repo.countSince = 49
	if ent := svc.CheckSubmissionAllowed(context.Background(), "u1", model.TierCreator); !ent.Allowed || ent.Remaining != 1 {
		t.Fatalf("creator with 49 used: entitlement = %+v, want allowed=true remaining=1", ent)
	}
}

func TestSubmissionLimitUnknownTierFallsBackToStarter(t *testing.T) {
	svc := NewEntitlementService(newFakeSubmissionRepo(), zerolog.Nop())
	if got := svc.SubmissionLimit(model.Tier("vip")); got != 5 {
		t.Fatalf("unknown tier limit = %d, want starter limit 5", got)
	}
}

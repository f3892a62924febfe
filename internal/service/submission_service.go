package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"app/internal/model"
	"app/internal/notify"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

var (
	ErrProductTitleRequired   = errors.New("product title is required")
	ErrUserPromptRequired     = errors.New("description/prompt is required")
	ErrImageTooLarge          = errors.New("image must be less than 5MB")
	ErrSubmissionLimitReached = errors.New("submission_limit_reached")
	ErrInvalidStatus          = errors.New("invalid submission status")
)

// maxImageBytes caps the decoded size of the embedded image payload.
const maxImageBytes = 5 * 1024 * 1024

// successSentinel is the literal the generation engine sends in
// error_message when nothing went wrong; it is never persisted.
const successSentinel = "Success"

// SubmissionService defines business logic for generation requests.
type SubmissionService interface {
	// Create validates the submission, gates it on the user's remaining
	// quota, persists it in the pending state and fires the generation
	// trigger. The trigger is fire-and-forget: its failure never fails the
	// create.
	Create(ctx context.Context, sub *model.Submission, tier model.Tier) (*model.Submission, error)
	// List returns the user's submissions, most recent first.
	List(ctx context.Context, userID string) ([]model.Submission, error)
	// Delete removes one of the user's submissions while it is still
	// pending. Once the engine has claimed it, deletion is refused.
	Delete(ctx context.Context, userID, submissionID string) error
	// ApplyCompletion reconciles a generation-engine callback into the
	// submission's state machine. Terminal states absorb redelivery as a
	// no-op success; unknown IDs are an error, never a silent drop.
	ApplyCompletion(ctx context.Context, submissionID, status, videoURL, errorMessage string) (*model.Submission, error)
}

type submissionService struct {
	repo           repository.SubmissionRepository
	entitlementSvc EntitlementService
	trigger        notify.GenerationTrigger
	logger         zerolog.Logger
}

// NewSubmissionService creates a new SubmissionService with a scoped logger.
func NewSubmissionService(
	repo repository.SubmissionRepository,
	entitlementSvc EntitlementService,
	trigger notify.GenerationTrigger,
	logger zerolog.Logger,
) SubmissionService {
	return &submissionService{
		repo:           repo,
		entitlementSvc: entitlementSvc,
		trigger:        trigger,
		logger:         logger.With().Str("service", "SubmissionService").Logger(),
	}
}

// Create validates, gates on quota, persists and fires the trigger.
func (s *submissionService) Create(ctx context.Context, sub *model.Submission, tier model.Tier) (*model.Submission, error) {
	if strings.TrimSpace(sub.ProductTitle) == "" {
		return nil, ErrProductTitleRequired
	}
	if strings.TrimSpace(sub.UserPrompt) == "" {
		return nil, ErrUserPromptRequired
	}
	// Base64 inflates the payload by 4/3, so the encoded length bounds the
	// decoded size well enough for a cap check.
	if len(sub.ImageBase64) > maxImageBytes*4/3 {
		return nil, ErrImageTooLarge
	}

	// Quota gate runs before any store write.
	ent := s.entitlementSvc.CheckSubmissionAllowed(ctx, sub.UserID, tier)
	if !ent.Allowed {
		s.logger.Info().Str("user_id", sub.UserID).Str("tier", string(tier)).Msg("Submission blocked by quota")
		return nil, ErrSubmissionLimitReached
	}

	if err := s.repo.CreateSubmission(ctx, sub); err != nil {
		s.logger.Error().Err(err).Str("user_id", sub.UserID).Msg("Failed to create submission")
		return nil, err
	}

	// Fire the generation trigger without tying it to the request lifetime.
	// The engine call is deliberately non-fatal to the submission flow.
	created := *sub
	go func() {
		triggerCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.trigger.Trigger(triggerCtx, &created); err != nil {
			s.logger.Warn().Err(err).Str("submission_id", created.ID).Msg("Generation trigger failed; submission stays pending")
		}
	}()

	return sub, nil
}

// List returns the user's submissions, most recent first.
func (s *submissionService) List(ctx context.Context, userID string) ([]model.Submission, error) {
	submissions, err := s.repo.GetSubmissionsByUserID(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to list submissions")
		return nil, err
	}
	return submissions, nil
}

// Delete removes one of the user's submissions while it is still pending.
func (s *submissionService) Delete(ctx context.Context, userID, submissionID string) error {
	existing, err := s.repo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return err
	}
	// A foreign user's submission is reported as absent, not as forbidden.
	if existing == nil || existing.UserID != userID {
		return repository.ErrSubmissionNotFound
	}
	if err := s.repo.DeleteSubmission(ctx, submissionID); err != nil {
		if !errors.Is(err, repository.ErrSubmissionNotPending) && !errors.Is(err, repository.ErrSubmissionNotFound) {
			s.logger.Error().Err(err).Str("submission_id", submissionID).Msg("Failed to delete submission")
		}
		return err
	}
	return nil
}

// ApplyCompletion reconciles an engine callback into the state machine.
func (s *submissionService) ApplyCompletion(ctx context.Context, submissionID, status, videoURL, errorMessage string) (*model.Submission, error) {
	// The engine omits status on intermediate progress callbacks.
	next := model.SubmissionStatus(status)
	if status == "" {
		next = model.StatusProcessing
	}
	if !next.IsValid() {
		return nil, ErrInvalidStatus
	}

	current, err := s.repo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, repository.ErrSubmissionNotFound
	}

	// Terminal states are immutable; the upstream webhook may redeliver, so
	// the redelivery is acknowledged without a write.
	if current.Status.IsTerminal() {
		s.logger.Info().
			Str("submission_id", submissionID).
			Str("current_status", string(current.Status)).
			Str("delivered_status", string(next)).
			Msg("Completion redelivery for terminal submission; no-op")
		return current, nil
	}
	// Deliveries arrive in any order. A backward move is absorbed rather
	// than rejected so an out-of-order callback cannot wedge the engine in
	// a retry loop.
	if !current.Status.CanTransition(next) {
		s.logger.Warn().
			Str("submission_id", submissionID).
			Str("current_status", string(current.Status)).
			Str("delivered_status", string(next)).
			Msg("Out-of-order completion delivery ignored")
		return current, nil
	}

	upd := model.StatusUpdate{Status: next}
	if videoURL != "" {
		upd.VideoURL = &videoURL
	}
	if errorMessage != "" && errorMessage != successSentinel {
		upd.ErrorMessage = &errorMessage
	}

	updated, err := s.repo.UpdateSubmissionStatus(ctx, submissionID, upd)
	if err != nil {
		s.logger.Error().Err(err).Str("submission_id", submissionID).Msg("Failed to apply completion update")
		return nil, err
	}
	s.logger.Info().
		Str("submission_id", submissionID).
		Str("status", string(updated.Status)).
		Msg("Submission status reconciled")
	return updated, nil
}

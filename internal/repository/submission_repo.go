package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrSubmissionNotFound reports that no submission exists for the ID.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrSubmissionNotPending reports that a delete was refused because the
	// generation engine has already claimed the submission.
	ErrSubmissionNotPending = errors.New("submission is no longer pending")
)

// SubmissionRepository defines methods for accessing submission data.
type SubmissionRepository interface {
	// CreateSubmission inserts a new pending submission and fills in the
	// generated ID and timestamps.
	CreateSubmission(ctx context.Context, sub *model.Submission) error
	// GetSubmissionByID returns the submission or nil when absent.
	GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error)
	// GetSubmissionsByUserID returns the user's submissions, most recent
	// first. A user with no submissions gets an empty slice, not nil.
	GetSubmissionsByUserID(ctx context.Context, userID string) ([]model.Submission, error)
	// CountSubmissionsSince counts the user's submissions created at or after
	// the given instant, regardless of status.
	CountSubmissionsSince(ctx context.Context, userID string, since time.Time) (int, error)
	// UpdateSubmissionStatus applies a partial-field merge: nil pointer
	// fields keep the stored value, so a status-only update cannot clobber a
	// previously written video_url or error_message.
	UpdateSubmissionStatus(ctx context.Context, id string, upd model.StatusUpdate) (*model.Submission, error)
	// DeleteSubmission removes the submission only while it is still pending.
	// Returns ErrSubmissionNotPending once the engine has claimed it.
	DeleteSubmission(ctx context.Context, id string) error
}

type submissionRepo struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepo creates a new SubmissionRepository.
func NewSubmissionRepo(pool *pgxpool.Pool) SubmissionRepository {
	return &submissionRepo{pool: pool}
}

// CreateSubmission inserts a new pending submission.
func (r *submissionRepo) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	const q = `
		INSERT INTO submissions (user_id, product_title, user_prompt, user_email, template_style, image_base64, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')
		RETURNING id, status, created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, q,
		sub.UserID, sub.ProductTitle, sub.UserPrompt, sub.UserEmail, sub.TemplateStyle, sub.ImageBase64,
	).Scan(&sub.ID, &sub.Status, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating submission for user %s: %w", sub.UserID, err)
	}
	return nil
}

// GetSubmissionByID returns the submission or nil when absent.
func (r *submissionRepo) GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error) {
	const q = `
		SELECT id, user_id, product_title, user_prompt, user_email, template_style, image_base64, status, video_url, error_message, created_at, updated_at
		FROM submissions
		WHERE id = $1
	`
	var sub model.Submission
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&sub.ID,
		&sub.UserID,
		&sub.ProductTitle,
		&sub.UserPrompt,
		&sub.UserEmail,
		&sub.TemplateStyle,
		&sub.ImageBase64,
		&sub.Status,
		&sub.VideoURL,
		&sub.ErrorMessage,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting submission %s: %w", id, err)
	}
	return &sub, nil
}

// GetSubmissionsByUserID returns the user's submissions, most recent first.
func (r *submissionRepo) GetSubmissionsByUserID(ctx context.Context, userID string) ([]model.Submission, error) {
	const q = `
		SELECT id, user_id, product_title, user_prompt, user_email, template_style, image_base64, status, video_url, error_message, created_at, updated_at
		FROM submissions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("querying submissions for user %s: %w", userID, err)
	}
	defer rows.Close()

	var submissions []model.Submission
	for rows.Next() {
		var sub model.Submission
		if err := rows.Scan(
			&sub.ID,
			&sub.UserID,
			&sub.ProductTitle,
			&sub.UserPrompt,
			&sub.UserEmail,
			&sub.TemplateStyle,
			&sub.ImageBase64,
			&sub.Status,
			&sub.VideoURL,
			&sub.ErrorMessage,
			&sub.CreatedAt,
			&sub.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning submission row: %w", err)
		}
		submissions = append(submissions, sub)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating submission rows: %w", err)
	}
	if len(submissions) == 0 {
		return []model.Submission{}, nil
	}
	return submissions, nil
}

// CountSubmissionsSince counts the user's submissions created at or after the
// given instant.
func (r *submissionRepo) CountSubmissionsSince(ctx context.Context, userID string, since time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM submissions WHERE user_id = $1 AND created_at >= $2`
	var count int
	if err := r.pool.QueryRow(ctx, q, userID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting submissions for user %s: %w", userID, err)
	}
	return count, nil
}

// UpdateSubmissionStatus applies a partial-field merge and returns the row.
func (r *submissionRepo) UpdateSubmissionStatus(ctx context.Context, id string, upd model.StatusUpdate) (*model.Submission, error) {
	const q = `
		UPDATE submissions
		SET status = $2,
			video_url = COALESCE($3, video_url),
			error_message = COALESCE($4, error_message),
			updated_at = NOW()
		WHERE id = $1
		RETURNING id, user_id, product_title, user_prompt, user_email, template_style, image_base64, status, video_url, error_message, created_at, updated_at
	`
	var sub model.Submission
	err := r.pool.QueryRow(ctx, q, id, upd.Status, upd.VideoURL, upd.ErrorMessage).Scan(
		&sub.ID,
		&sub.UserID,
		&sub.ProductTitle,
		&sub.UserPrompt,
		&sub.UserEmail,
		&sub.TemplateStyle,
		&sub.ImageBase64,
		&sub.Status,
		&sub.VideoURL,
		&sub.ErrorMessage,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("updating submission %s: %w", id, err)
	}
	return &sub, nil
}

// DeleteSubmission removes the submission only while it is still pending.
func (r *submissionRepo) DeleteSubmission(ctx context.Context, id string) error {
	const q = `DELETE FROM submissions WHERE id = $1 AND status = 'pending'`
	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return fmt.Errorf("deleting submission %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing row from one the engine already claimed.
		existing, err := r.GetSubmissionByID(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrSubmissionNotFound
		}
		return ErrSubmissionNotPending
	}
	return nil
}

package model

import "time"

// SubmissionStatus is the lifecycle state of a generation request.
type SubmissionStatus string

const (
	StatusPending    SubmissionStatus = "pending"
	StatusProcessing SubmissionStatus = "processing"
	StatusCompleted  SubmissionStatus = "completed"
	StatusFailed     SubmissionStatus = "failed"
)

// statusRank orders the lifecycle so that legal transitions only move
// forward: pending -> processing -> {completed|failed}.
var statusRank = map[SubmissionStatus]int{
	StatusPending:    0,
	StatusProcessing: 1,
	StatusCompleted:  2,
	StatusFailed:     2,
}

// IsValid reports whether s is one of the known lifecycle states.
func (s SubmissionStatus) IsValid() bool {
	_, ok := statusRank[s]
	return ok
}

// IsTerminal reports whether no further transition is permitted from s.
func (s SubmissionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving from s to next is a forward move.
// Terminal states admit no transition; re-delivery of a terminal update is
// handled by callers as an idempotent no-op, not as a transition.
func (s SubmissionStatus) CanTransition(next SubmissionStatus) bool {
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	if s.IsTerminal() {
		return false
	}
	return to > from || (s == next && !s.IsTerminal())
}

// Submission represents one user-initiated video generation request.
type Submission struct {
	ID            string           `db:"id" json:"id"`
	UserID        string           `db:"user_id" json:"user_id"`
	ProductTitle  string           `db:"product_title" json:"product_title"`
	UserPrompt    string           `db:"user_prompt" json:"user_prompt"`
	UserEmail     string           `db:"user_email" json:"user_email"`
	TemplateStyle string           `db:"template_style" json:"template_style"`
	ImageBase64   string           `db:"image_base64" json:"image_base64,omitempty"`
	Status        SubmissionStatus `db:"status" json:"status"`
	VideoURL      *string          `db:"video_url" json:"video_url,omitempty"`
	ErrorMessage  *string          `db:"error_message" json:"error_message,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`
}

// StatusUpdate is a partial-field merge applied to a submission by the
// completion reconciler. Nil pointer fields leave the stored value untouched
// so a status-only write cannot clobber a concurrent video_url write.
type StatusUpdate struct {
	Status       SubmissionStatus
	VideoURL     *string
	ErrorMessage *string
}

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"app/internal/model"

	"github.com/rs/zerolog"
)

// GenerationTrigger notifies the external workflow engine that a new
// submission is ready for rendering.
type GenerationTrigger interface {
	// Trigger posts the full submission payload to the engine. The call is
	// fire-and-forget from the caller's perspective: a non-2xx response or a
	// transport error is logged and returned, but callers must never fail
	// the user-visible submission flow on it.
	Trigger(ctx context.Context, sub *model.Submission) error
}

type generationTrigger struct {
	webhookURL string
	client     *http.Client
	logger     zerolog.Logger
}

// NewGenerationTrigger creates a trigger client for the engine webhook URL.
func NewGenerationTrigger(webhookURL string, logger zerolog.Logger) GenerationTrigger {
	return &generationTrigger{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With().Str("service", "GenerationTrigger").Logger(),
	}
}

type triggerPayload struct {
	SubmissionID  string `json:"submission_id"`
	ProductTitle  string `json:"product_title"`
	UserPrompt    string `json:"user_prompt"`
	UserEmail     string `json:"user_email"`
	TemplateStyle string `json:"template_style"`
	ImageBase64   string `json:"image_base64"`
}

// Trigger posts the full submission payload to the engine.
func (t *generationTrigger) Trigger(ctx context.Context, sub *model.Submission) error {
	payload := triggerPayload{
		SubmissionID:  sub.ID,
		ProductTitle:  sub.ProductTitle,
		UserPrompt:    sub.UserPrompt,
		UserEmail:     sub.UserEmail,
		TemplateStyle: sub.TemplateStyle,
		ImageBase64:   sub.ImageBase64,
	}
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling trigger payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.webhookURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("creating trigger request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		t.logger.Error().Err(err).Str("submission_id", sub.ID).Msg("Failed to reach generation engine")
		return fmt.Errorf("posting generation trigger: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		t.logger.Warn().Int("status_code", resp.StatusCode).Str("submission_id", sub.ID).Msg("Generation engine returned non-2xx for trigger")
		return fmt.Errorf("generation engine returned status %d", resp.StatusCode)
	}

	t.logger.Info().Str("submission_id", sub.ID).Msg("Generation trigger delivered")
	return nil
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"app/internal/api/v1/dto"
	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// fakeSubmissionService stubs the completion reconciler for handler tests.
type fakeSubmissionService struct {
	applied    []dto.CompletionCallbackRequest
	applyErr   error
	submission *model.Submission
}

func (f *fakeSubmissionService) Create(_ context.Context, sub *model.Submission, _ model.Tier) (*model.Submission, error) {
	return sub, nil
}

func (f *fakeSubmissionService) List(context.Context, string) ([]model.Submission, error) {
	return []model.Submission{}, nil
}

func (f *fakeSubmissionService) Delete(context.Context, string, string) error { return nil }

func (f *fakeSubmissionService) ApplyCompletion(_ context.Context, submissionID, status, videoURL, errorMessage string) (*model.Submission, error) {
	f.applied = append(f.applied, dto.CompletionCallbackRequest{
		SubmissionID: submissionID,
		Status:       status,
		VideoURL:     videoURL,
		ErrorMessage: errorMessage,
	})
	if f.applyErr != nil {
		return nil, f.applyErr
	}
	return f.submission, nil
}

func postCompletion(h *WebhookHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/completion", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.CompletionWebhook(rec, req)
	return rec
}

func TestCompletionWebhookHappyPath(t *testing.T) {
	svc := &fakeSubmissionService{
		submission: &model.Submission{ID: "sub-1", Status: model.StatusCompleted},
	}
	h := NewWebhookHandler(nil, svc, zerolog.Nop())

	rec := postCompletion(h, `{"submission_id": "sub-1", "status": "completed", "video_url": "https://cdn.example/v.mp4"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}

	var resp dto.CompletionCallbackResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !resp.Success || resp.SubmissionID != "sub-1" || resp.Status != "completed" {
		t.Fatalf("response = %+v", resp)
	}

	if len(svc.applied) != 1 {
		t.Fatalf("ApplyCompletion called %d times, want 1", len(svc.applied))
	}
	if got := svc.applied[0]; got.VideoURL != "https://cdn.example/v.mp4" || got.Status != "completed" {
		t.Fatalf("forwarded fields = %+v", got)
	}
}

func TestCompletionWebhookRejectsMissingSubmissionID(t *testing.T) {
	svc := &fakeSubmissionService{}
	h := NewWebhookHandler(nil, svc, zerolog.Nop())

	rec := postCompletion(h, `{"status": "completed"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp dto.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("error body must be JSON: %v", err)
	}
	if resp.Error == "" {
		t.Fatal("error body must carry a message")
	}
	if len(svc.applied) != 0 {
		t.Fatal("service must not be called without a submission_id")
	}
}

func TestCompletionWebhookRejectsMalformedJSON(t *testing.T) {
	h := NewWebhookHandler(nil, &fakeSubmissionService{}, zerolog.Nop())
	if rec := postCompletion(h, `{broken`); rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCompletionWebhookUnknownSubmissionIs404(t *testing.T) {
	svc := &fakeSubmissionService{applyErr: repository.ErrSubmissionNotFound}
	h := NewWebhookHandler(nil, svc, zerolog.Nop())

	if rec := postCompletion(h, `{"submission_id": "ghost", "status": "completed"}`); rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCompletionWebhookRejectsNonPost(t *testing.T) {
	h := NewWebhookHandler(nil, &fakeSubmissionService{}, zerolog.Nop())
	req := httptest.NewRequest(http.MethodGet, "/webhooks/completion", nil)
	rec := httptest.NewRecorder()
	h.CompletionWebhook(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

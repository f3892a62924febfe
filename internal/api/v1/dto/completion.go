package dto

// CompletionCallbackRequest is the generation engine's callback body.
type CompletionCallbackRequest struct {
	SubmissionID string `json:"submission_id"`
	Status       string `json:"status"`
	VideoURL     string `json:"video_url"`
	ErrorMessage string `json:"error_message"`
}

// CompletionCallbackResponse acknowledges a reconciled callback.
type CompletionCallbackResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	SubmissionID string `json:"submission_id"`
	Status       string `json:"status"`
}

// ErrorResponse is the generic JSON error body for webhook endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}

package dto

// SubmissionCreateRequest is the payload for creating a generation request.
type SubmissionCreateRequest struct {
	ProductTitle  string `json:"product_title" validate:"required"`
	UserPrompt    string `json:"user_prompt" validate:"required"`
	TemplateStyle string `json:"template_style" validate:"required"`
	ImageBase64   string `json:"image_base64"`
}

// UsageResponse reports the remaining daily quota for the dashboard
// progress bar. Remaining and Limit are -1 for unlimited tiers.
type UsageResponse struct {
	Tier      string `json:"tier"`
	Remaining int    `json:"remaining"`
	Limit     int    `json:"limit"`
}

package dto

// CreateGenerationRequest is the body of POST /api/v1/generations
type CreateGenerationRequest struct {
	IdempotencyKey string  `json:"idempotency_key" binding:"required"`
	UserID         string  `json:"user_id" binding:"required"`
	JobType        string  `json:"job_type" binding:"required"`
	Prompt         string  `json:"prompt" binding:"required"`
	ImageURL       string  `json:"image_url"` // required for image_to_image
	Duration       float64 `json:"duration"`  // seconds, text_to_video only
	ModelName      string  `json:"model_name"`
	SaveAt         string  `json:"save_at"` // destination path; derived from download_dir when empty
}

// GenerationPayload is the payload JSON stored alongside a generation and
// handed to the worker
type GenerationPayload struct {
	Prompt   string  `json:"prompt"`
	ImageURL string  `json:"image_url,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	SaveAt   string  `json:"save_at,omitempty"`
}

// ListGenerationsRequest are the query parameters of GET /api/v1/generations
type ListGenerationsRequest struct {
	UserID   string `form:"user_id"`
	JobType  string `form:"job_type"`
	Status   string `form:"status"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

// ListGenerationsResponse is the body of GET /api/v1/generations
type ListGenerationsResponse struct {
	Generations []GenerationDTO `json:"generations"`
	NextCursor  string          `json:"next_cursor,omitempty"`
}

// GenerationDTO is the API representation of a generation
type GenerationDTO struct {
	GenerationID   string `json:"generation_id"`
	IdempotencyKey string `json:"idempotency_key"`
	UserID         string `json:"user_id"`
	JobType        string `json:"job_type"`
	ModelName      string `json:"model_name"`
	Payload        string `json:"payload"`
	Status         string `json:"status"`
	Result         string `json:"result,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

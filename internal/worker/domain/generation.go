package domain

import "encoding/json"

// Generation status constants
const (
	GenerationStatusPending   = "PENDING"
	GenerationStatusRunning   = "RUNNING"
	GenerationStatusCompleted = "COMPLETED"
	GenerationStatusFailed    = "FAILED"
	GenerationStatusCanceled  = "CANCELED"
)

// Generation represents a generation row claimed for worker processing
type Generation struct {
	GenerationID   string
	JobType        string
	ModelName      string
	Payload        string // JSON string
	Status         string
	WorkerID       string
	RetryCount     int
	MaxRetries     int
	TimeoutSeconds int
}

// GenerationPayload is the parsed payload of a generation job
type GenerationPayload struct {
	Prompt   string  `json:"prompt"`
	ImageURL string  `json:"image_url,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	SaveAt   string  `json:"save_at,omitempty"`
}

// ParsePayload unmarshals the generation's payload JSON
func (g *Generation) ParsePayload() (*GenerationPayload, error) {
	var payload GenerationPayload
	if g.Payload != "" {
		if err := json.Unmarshal([]byte(g.Payload), &payload); err != nil {
			return nil, err
		}
	}
	return &payload, nil
}

// GenerationMessage represents a generation message from RabbitMQ
type GenerationMessage struct {
	GenerationID string `json:"generation_id"`
	DeliveryTag  uint64 `json:"-"`
}

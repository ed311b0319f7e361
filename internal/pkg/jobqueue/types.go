package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeNotification   JobType = "notification"
	JobTypeWebhookArchive JobType = "webhook_archive"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// NotificationJobPayload carries one user or admin notification
type NotificationJobPayload struct {
	UserID      uint   `json:"user_id"`
	Audience    string `json:"audience"`
	Type        string `json:"type"`
	Content     string `json:"content"`
	ReferenceID uint   `json:"reference_id"`
}

// ToMap converts the payload to a map for storage
func (p NotificationJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"user_id":      p.UserID,
		"audience":     p.Audience,
		"type":         p.Type,
		"content":      p.Content,
		"reference_id": p.ReferenceID,
	}
}

func NotificationJobPayloadFromMap(data map[string]interface{}) (*NotificationJobPayload, error) {
	var payload NotificationJobPayload
	if err := decodePayload(data, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// WebhookArchiveJobPayload carries a raw gateway notification for the archive
type WebhookArchiveJobPayload struct {
	Provider   string    `json:"provider"`
	OrderID    string    `json:"order_id"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
}

// ToMap converts the payload to a map for storage
func (p WebhookArchiveJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"provider":    p.Provider,
		"order_id":    p.OrderID,
		"body":        p.Body,
		"received_at": p.ReceivedAt.UTC().Format(time.RFC3339Nano),
	}
}

func WebhookArchiveJobPayloadFromMap(data map[string]interface{}) (*WebhookArchiveJobPayload, error) {
	var payload WebhookArchiveJobPayload
	if err := decodePayload(data, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// decodePayload round-trips a stored payload map through JSON into a typed struct
func decodePayload(data map[string]interface{}, out interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonData, out)
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}

package jobqueue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBasicJobTypes tests the job type constants
func TestBasicJobTypes(t *testing.T) {
	assert.Equal(t, "notification", string(JobTypeNotification))
	assert.Equal(t, "webhook_archive", string(JobTypeWebhookArchive))
}

// TestBasicJobStatus tests the basic job status constants
func TestBasicJobStatus(t *testing.T) {
	assert.Equal(t, "pending", string(JobStatusPending))
	assert.Equal(t, "processing", string(JobStatusProcessing))
	assert.Equal(t, "completed", string(JobStatusCompleted))
	assert.Equal(t, "failed", string(JobStatusFailed))
	assert.Equal(t, "retrying", string(JobStatusRetrying))
}

// TestJob_BasicMethods tests basic job methods
func TestJob_BasicMethods(t *testing.T) {
	job := &Job{
		Status:     JobStatusFailed,
		RetryCount: 1,
		MaxRetries: 3,
	}

	assert.True(t, job.IsRetryable())

	job.RetryCount = 3
	assert.False(t, job.IsRetryable())

	beforeTime := time.Now()

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	assert.NotNil(t, job.ProcessedAt)
	assert.False(t, job.UpdatedAt.Before(beforeTime))

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.NotNil(t, job.CompletedAt)
	assert.Empty(t, job.ErrorMsg)

	job.MarkAsFailed("test error")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "test error", job.ErrorMsg)
	assert.Equal(t, 4, job.RetryCount)

	job.MarkAsRetrying()
	assert.Equal(t, JobStatusRetrying, job.Status)
}

// TestNotificationJobPayload_StoredForm checks the payload survives the trip through Redis
func TestNotificationJobPayload_StoredForm(t *testing.T) {
	payload := NotificationJobPayload{
		UserID:      42,
		Audience:    "user",
		Type:        "commission_earned",
		Content:     "You earned a commission of 29900 from a referral.",
		ReferenceID: 7,
	}

	job := &Job{ID: "job-1", Type: JobTypeNotification, Payload: payload.ToMap()}
	raw, err := json.Marshal(job)
	require.NoError(t, err)

	var stored Job
	require.NoError(t, json.Unmarshal(raw, &stored))

	result, err := NotificationJobPayloadFromMap(stored.Payload)
	require.NoError(t, err)
	assert.Equal(t, &payload, result)
}

func TestWebhookArchiveJobPayload_StoredForm(t *testing.T) {
	at := time.Date(2026, 3, 10, 9, 0, 0, 123, time.UTC)
	payload := WebhookArchiveJobPayload{Provider: "midtrans", OrderID: "QF-1-PRO-1", Body: `{"a":1}`, ReceivedAt: at}

	raw, err := json.Marshal(payload.ToMap())
	require.NoError(t, err)
	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &data))

	result, err := WebhookArchiveJobPayloadFromMap(data)
	require.NoError(t, err)
	assert.Equal(t, "midtrans", result.Provider)
	assert.Equal(t, `{"a":1}`, result.Body)
	assert.True(t, result.ReceivedAt.Equal(at))
}

// TestPayloadFromMapErrors tests error handling in payload deserialization
func TestPayloadFromMapErrors(t *testing.T) {
	invalidData := map[string]interface{}{
		"invalid": make(chan int), // Channels can't be marshaled to JSON
	}

	notification, err := NotificationJobPayloadFromMap(invalidData)
	assert.Error(t, err)
	assert.Nil(t, notification)

	archive, err := WebhookArchiveJobPayloadFromMap(map[string]interface{}{"user_id": "not a number", "received_at": 5})
	assert.Error(t, err)
	assert.Nil(t, archive)
}

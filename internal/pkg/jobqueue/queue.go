package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/QuizFox/internal/pkg/cache"
)

const (
	// Redis keys
	JobKeyPrefix     = "quizfox:job:"
	JobQueueKey      = "quizfox:jobs:pending"
	JobProcessingKey = "quizfox:jobs:processing"
	JobDelayedKey    = "quizfox:jobs:delayed"
	JobDeadKey       = "quizfox:jobs:dead"
	JobStatsKey      = "quizfox:jobs:stats"

	DefaultMaxRetries = 3
	JobTTL            = 72 * time.Hour

	defaultQueueWorkers = 3
	baseRetryDelay      = 30 * time.Second
	maxRetryDelay       = 30 * time.Minute
	stuckAfter          = 10 * time.Minute
	sweepInterval       = time.Minute
)

// maxRetries per job type. Notifications are cheap and worth more attempts
// than archive uploads.
var maxRetries = map[JobType]int{
	JobTypeNotification:   5,
	JobTypeWebhookArchive: DefaultMaxRetries,
}

func maxRetriesFor(t JobType) int {
	if n, ok := maxRetries[t]; ok {
		return n
	}
	return DefaultMaxRetries
}

// retryDelay doubles from baseRetryDelay per attempt, capped at maxRetryDelay.
func retryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := baseRetryDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	return d
}

// Handler processes one job. A returned error marks the job failed and
// schedules a retry while attempts remain.
type Handler func(ctx context.Context, job *Job) error

// Queue runs background jobs from Redis lists. Failed jobs wait in a sorted
// set keyed by their next attempt time; exhausted ones move to a dead list.
type Queue struct {
	client  *redis.Client
	workers int
	now     func() time.Time
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool

	handlersMu sync.RWMutex
	handlers   map[JobType]Handler
}

// NewQueue creates a job queue on the shared cache client
func NewQueue(workers int) *Queue {
	return NewQueueWithClient(cache.GetClient(), workers)
}

// NewQueueWithClient creates a job queue on a specific Redis client
func NewQueueWithClient(client *redis.Client, workers int) *Queue {
	if workers <= 0 {
		workers = defaultQueueWorkers
	}
	return &Queue{
		client:   client,
		workers:  workers,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		handlers: map[JobType]Handler{},
	}
}

// RegisterHandler sets the handler for a job type, replacing any previous one
func (q *Queue) RegisterHandler(jobType JobType, h Handler) {
	q.handlersMu.Lock()
	defer q.handlersMu.Unlock()
	q.handlers[jobType] = h
}

func (q *Queue) handler(jobType JobType) (Handler, bool) {
	q.handlersMu.RLock()
	defer q.handlersMu.RUnlock()
	h, ok := q.handlers[jobType]
	return h, ok
}

// Start launches the workers and the maintenance loop
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return
	}

	q.stopCh = make(chan struct{})
	q.running = true
	log.Infof("[JobQueue] Starting %d workers", q.workers)

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	q.wg.Add(1)
	go q.maintain()
}

// Stop signals all workers and waits for running jobs to finish
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.running {
		return
	}

	log.Info("[JobQueue] Stopping workers...")
	close(q.stopCh)
	q.running = false
	q.wg.Wait()
	log.Info("[JobQueue] All workers stopped")
}

// maintain promotes due retries and recovers jobs abandoned by a crashed worker
func (q *Queue) maintain() {
	defer q.wg.Done()
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	ctx := context.Background()

	for {
		select {
		case <-q.stopCh:
			return
		case <-ticker.C:
			if _, err := q.promoteDue(ctx); err != nil {
				log.Errorf("[JobQueue] Promoting delayed jobs failed: %v", err)
			}
			if n, err := q.recoverStuck(ctx, stuckAfter); err != nil {
				log.Errorf("[JobQueue] Recovering stuck jobs failed: %v", err)
			} else if n > 0 {
				log.Warnf("[JobQueue] Recovered %d stuck jobs", n)
			}
		}
	}
}

// promoteDue moves delayed jobs whose retry time has come back to pending.
func (q *Queue) promoteDue(ctx context.Context) (int, error) {
	until := strconv.FormatInt(q.now().UnixMilli(), 10)
	ids, err := q.client.ZRangeByScore(ctx, JobDelayedKey, &redis.ZRangeBy{Min: "-inf", Max: until}).Result()
	if err != nil {
		return 0, err
	}
	promoted := 0
	for _, id := range ids {
		// ZRem decides the race between two promoters; only the winner requeues
		removed, err := q.client.ZRem(ctx, JobDelayedKey, id).Result()
		if err != nil {
			return promoted, err
		}
		if removed == 0 {
			continue
		}
		if err := q.client.LPush(ctx, JobQueueKey, id).Err(); err != nil {
			return promoted, err
		}
		promoted++
	}
	return promoted, nil
}

// recoverStuck requeues jobs that have been processing for longer than maxAge.
func (q *Queue) recoverStuck(ctx context.Context, maxAge time.Duration) (int, error) {
	ids, err := q.client.LRange(ctx, JobProcessingKey, 0, -1).Result()
	if err != nil {
		return 0, err
	}
	now := q.now()
	recovered := 0
	for _, id := range ids {
		job, err := q.GetJob(ctx, id)
		if err != nil || job.Status != JobStatusProcessing {
			// data expired or the entry is stale
			_ = q.client.LRem(ctx, JobProcessingKey, 1, id).Err()
			continue
		}
		started := job.UpdatedAt
		if job.ProcessedAt != nil {
			started = *job.ProcessedAt
		}
		if now.Sub(started) <= maxAge {
			continue
		}
		job.Status = JobStatusPending
		job.ErrorMsg = "recovered after worker loss"
		job.UpdatedAt = now
		q.updateJob(ctx, job)
		pipe := q.client.TxPipeline()
		pipe.LRem(ctx, JobProcessingKey, 1, id)
		pipe.RPush(ctx, JobQueueKey, id)
		if _, err := pipe.Exec(ctx); err != nil {
			return recovered, err
		}
		recovered++
	}
	return recovered, nil
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	ctx := context.Background()

	for {
		select {
		case <-q.stopCh:
			log.Debugf("[JobQueue] Worker %d stopping", id)
			return
		default:
		}

		if _, err := q.ProcessNext(ctx); err != nil {
			log.Errorf("[JobQueue] Worker %d: %v", id, err)
			time.Sleep(time.Second)
		}
	}
}

// EnqueueJob stores a new job and appends it to the pending list
func (q *Queue) EnqueueJob(ctx context.Context, jobType JobType, payload map[string]interface{}) (*Job, error) {
	now := q.now()
	job := &Job{
		ID:         uuid.New().String(),
		Type:       jobType,
		Status:     JobStatusPending,
		Payload:    payload,
		CreatedAt:  now,
		UpdatedAt:  now,
		MaxRetries: maxRetriesFor(jobType),
	}

	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.Set(ctx, JobKeyPrefix+job.ID, data, JobTTL)
	pipe.LPush(ctx, JobQueueKey, job.ID)
	pipe.HIncrBy(ctx, JobStatsKey, string(JobStatusPending), 1)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("enqueue %s job: %w", jobType, err)
	}

	log.Debugf("[JobQueue] Enqueued job %s (type %s)", job.ID, job.Type)
	return job, nil
}

// dequeueJob blocks up to one second for the next pending job
func (q *Queue) dequeueJob(ctx context.Context) (*Job, error) {
	id, err := q.client.BRPopLPush(ctx, JobQueueKey, JobProcessingKey, time.Second).Result()
	if err != nil {
		return nil, err
	}

	job, err := q.GetJob(ctx, id)
	if err != nil {
		q.removeFromProcessing(ctx, id)
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}
	return job, nil
}

func (q *Queue) processJob(ctx context.Context, job *Job) {
	job.MarkAsProcessing()
	q.updateJob(ctx, job)

	var err error
	if h, ok := q.handler(job.Type); ok {
		err = runHandler(ctx, h, job)
	} else {
		err = fmt.Errorf("unknown job type: %s", job.Type)
	}

	if err == nil {
		q.updateJobStats(ctx, JobStatusCompleted, 1)
		q.removeFromProcessing(ctx, job.ID)
		q.removeCompletedJob(ctx, job.ID)
		return
	}

	job.MarkAsFailed(err.Error())
	if job.IsRetryable() {
		delay := retryDelay(job.RetryCount)
		log.Warnf("[JobQueue] Job %s (%s) failed, attempt %d/%d, retrying in %s: %v", job.ID, job.Type, job.RetryCount, job.MaxRetries, delay, err)
		job.MarkAsRetrying()
		q.updateJob(ctx, job)
		pipe := q.client.TxPipeline()
		pipe.ZAdd(ctx, JobDelayedKey, redis.Z{Score: float64(q.now().Add(delay).UnixMilli()), Member: job.ID})
		pipe.LRem(ctx, JobProcessingKey, 1, job.ID)
		if _, perr := pipe.Exec(ctx); perr != nil {
			log.Errorf("[JobQueue] Failed to schedule retry of job %s: %v", job.ID, perr)
		}
		return
	}

	log.Errorf("[JobQueue] Job %s (%s) failed permanently after %d attempts: %v", job.ID, job.Type, job.RetryCount, err)
	q.updateJob(ctx, job)
	q.updateJobStats(ctx, JobStatusFailed, 1)
	pipe := q.client.TxPipeline()
	pipe.LPush(ctx, JobDeadKey, job.ID)
	pipe.LRem(ctx, JobProcessingKey, 1, job.ID)
	if _, perr := pipe.Exec(ctx); perr != nil {
		log.Errorf("[JobQueue] Failed to move job %s to the dead list: %v", job.ID, perr)
	}
}

// runHandler turns a handler panic into a job failure
func runHandler(ctx context.Context, h Handler, job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, job)
}

func (q *Queue) updateJob(ctx context.Context, job *Job) {
	data, err := json.Marshal(job)
	if err != nil {
		log.Errorf("[JobQueue] Failed to marshal job %s: %v", job.ID, err)
		return
	}
	if err := q.client.Set(ctx, JobKeyPrefix+job.ID, data, JobTTL).Err(); err != nil {
		log.Errorf("[JobQueue] Failed to update job %s: %v", job.ID, err)
	}
}

func (q *Queue) removeFromProcessing(ctx context.Context, jobID string) {
	if err := q.client.LRem(ctx, JobProcessingKey, 1, jobID).Err(); err != nil {
		log.Errorf("[JobQueue] Failed to remove job %s from processing list: %v", jobID, err)
	}
}

func (q *Queue) removeCompletedJob(ctx context.Context, jobID string) {
	if err := q.client.Del(ctx, JobKeyPrefix+jobID).Err(); err != nil {
		log.Errorf("[JobQueue] Failed to delete completed job %s: %v", jobID, err)
	}
}

func (q *Queue) updateJobStats(ctx context.Context, status JobStatus, delta int64) {
	if err := q.client.HIncrBy(ctx, JobStatsKey, string(status), delta).Err(); err != nil {
		log.Errorf("[JobQueue] Failed to update job stats: %v", err)
	}
}

// GetJob loads a job by ID
func (q *Queue) GetJob(ctx context.Context, jobID string) (*Job, error) {
	data, err := q.client.Get(ctx, JobKeyPrefix+jobID).Bytes()
	if err != nil {
		return nil, err
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job %s: %w", jobID, err)
	}
	return &job, nil
}

// GetJobStats returns the cumulative counters per status
func (q *Queue) GetJobStats(ctx context.Context) (map[JobStatus]int64, error) {
	raw, err := q.client.HGetAll(ctx, JobStatsKey).Result()
	if err != nil {
		return nil, err
	}
	stats := make(map[JobStatus]int64, len(raw))
	for status, count := range raw {
		if n, err := strconv.ParseInt(count, 10, 64); err == nil {
			stats[JobStatus(status)] = n
		}
	}
	return stats, nil
}

// GetQueueSize returns the number of pending jobs
func (q *Queue) GetQueueSize(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, JobQueueKey).Result()
}

// GetProcessingSize returns the number of jobs currently held by workers
func (q *Queue) GetProcessingSize(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, JobProcessingKey).Result()
}

// GetRetrySize returns the number of jobs waiting for a retry
func (q *Queue) GetRetrySize(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, JobDelayedKey).Result()
}

// GetDeadSize returns the number of permanently failed jobs
func (q *Queue) GetDeadSize(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, JobDeadKey).Result()
}

// ProcessNext waits up to one second for a pending job and runs it. It reports
// whether a job was processed.
func (q *Queue) ProcessNext(ctx context.Context) (bool, error) {
	job, err := q.dequeueJob(ctx)
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	q.processJob(ctx, job)
	return true, nil
}

package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/QuizFox/internal/pkg/env"
)

const defaultWorkerCount = 5

// PeriodicTask is a background task the manager runs on a fixed interval
type PeriodicTask struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Manager manages the global job queue and background tasks
type Manager struct {
	queue   *Queue
	tasks   []PeriodicTask
	cancel  context.CancelFunc
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		globalManager = &Manager{
			queue:  NewQueue(workerCount()),
			stopCh: make(chan struct{}),
		}
	})
	return globalManager
}

// workerCount reads JOBQUEUE_WORKERS, falling back to the default
func workerCount() int {
	return env.GetPositiveInt("JOBQUEUE_WORKERS", defaultWorkerCount)
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// RegisterPeriodicTask adds a task that runs every interval while the manager
// is running. Tasks registered after Start run from the next Start on.
func (m *Manager) RegisterPeriodicTask(task PeriodicTask) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if task.Interval <= 0 || task.Run == nil {
		log.Warnf("[JobQueue Manager] Ignoring periodic task %q without interval or function", task.Name)
		return
	}
	m.tasks = append(m.tasks, task)
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	m.queue.Start()

	for _, task := range m.tasks {
		m.wg.Add(1)
		go m.taskWorker(ctx, task, m.stopCh)
	}

	log.Infof("[JobQueue Manager] Started successfully with %d periodic tasks", len(m.tasks))
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")

	// Signal workers to stop and abort running tasks
	close(m.stopCh)
	m.cancel()
	m.stopCh = nil
	m.running = false

	m.wg.Wait()
	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

// taskWorker runs one periodic task until the manager stops
func (m *Manager) taskWorker(ctx context.Context, task PeriodicTask, stopCh chan struct{}) {
	defer m.wg.Done()
	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()
	log.Infof("[JobQueue Manager] Started %s worker (interval: %s)", task.Name, task.Interval)

	for {
		select {
		case <-stopCh:
			log.Infof("[JobQueue Manager] %s worker stopping", task.Name)
			return
		case <-ticker.C:
			runTask(ctx, task)
		}
	}
}

func runTask(ctx context.Context, task PeriodicTask) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("[JobQueue Manager] %s panicked: %v", task.Name, r)
		}
	}()
	if err := task.Run(ctx); err != nil {
		log.Errorf("[JobQueue Manager] %s error: %v", task.Name, err)
	}
}

// RunTaskOnce runs the named periodic task immediately (admin use)
func (m *Manager) RunTaskOnce(ctx context.Context, name string) bool {
	m.mu.Lock()
	var (
		task  PeriodicTask
		found bool
	)
	for _, t := range m.tasks {
		if t.Name == name {
			task, found = t, true
			break
		}
	}
	m.mu.Unlock()
	if !found {
		return false
	}
	runTask(ctx, task)
	return true
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

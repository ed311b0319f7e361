package jobqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ManuelReschke/QuizFox/internal/pkg/env"
)

func resetManager() {
	globalManager = nil
	managerOnce = sync.Once{}
}

func TestGetManager(t *testing.T) {
	resetManager()

	manager1 := GetManager()
	manager2 := GetManager()

	assert.NotNil(t, manager1)
	assert.Same(t, manager1, manager2, "GetManager should return the same instance")
	assert.NotNil(t, manager1.queue)
	assert.NotNil(t, manager1.stopCh)
	assert.False(t, manager1.running)
}

func TestManager_GetQueue(t *testing.T) {
	resetManager()

	manager := GetManager()
	assert.Same(t, manager.queue, manager.GetQueue())
}

func TestManager_WorkerCountFromEnv(t *testing.T) {
	env.Env = map[string]string{"JOBQUEUE_WORKERS": "8"}
	t.Cleanup(func() { env.Env = nil })
	assert.Equal(t, 8, workerCount())

	env.Env["JOBQUEUE_WORKERS"] = "zero"
	assert.Equal(t, defaultWorkerCount, workerCount())

	env.Env["JOBQUEUE_WORKERS"] = "-2"
	assert.Equal(t, defaultWorkerCount, workerCount())
}

func TestManager_StopWithoutStart(t *testing.T) {
	resetManager()

	manager := GetManager()
	assert.False(t, manager.IsRunning())
	manager.Stop()
	assert.False(t, manager.IsRunning())
}

func TestManager_RegisterPeriodicTask(t *testing.T) {
	m := &Manager{stopCh: make(chan struct{})}

	m.RegisterPeriodicTask(PeriodicTask{Name: "no interval", Run: func(context.Context) error { return nil }})
	m.RegisterPeriodicTask(PeriodicTask{Name: "no func", Interval: time.Minute})
	assert.Empty(t, m.tasks)

	var calls int32
	m.RegisterPeriodicTask(PeriodicTask{Name: "reconcile", Interval: time.Minute, Run: func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("gateway down")
	}})
	assert.Len(t, m.tasks, 1)

	assert.True(t, m.RunTaskOnce(context.Background(), "reconcile"))
	assert.False(t, m.RunTaskOnce(context.Background(), "unknown"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestTaskWorkerRunsOnTickAndStops(t *testing.T) {
	m := &Manager{}
	var calls int32
	task := PeriodicTask{Name: "expire", Interval: 10 * time.Millisecond, Run: func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}}

	stopCh := make(chan struct{})
	m.wg.Add(1)
	go m.taskWorker(context.Background(), task, stopCh)

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 2 }, time.Second, 5*time.Millisecond)
	close(stopCh)
	m.wg.Wait()
}

func TestRunTaskRecoversPanics(t *testing.T) {
	assert.NotPanics(t, func() {
		runTask(context.Background(), PeriodicTask{Name: "boom", Run: func(context.Context) error { panic("boom") }})
	})
}

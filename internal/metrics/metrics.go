// Package metrics keeps in-process counters of synthesis job outcomes.
package metrics

import (
	"context"
	"sync"

	"github.com/sfzman/indextts-server/internal/events"
)

// Metrics tracks system metrics
type Metrics struct {
	mu sync.RWMutex

	totalJobs     int64
	startedJobs   int64
	completedJobs int64
	failedJobs    int64
	deletedJobs   int64
}

var _ events.EventHandler = (*Metrics)(nil)

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// HandleEvent counts a task lifecycle event. Unknown event types are ignored.
func (m *Metrics) HandleEvent(_ context.Context, event *events.TaskEvent) error {
	if event == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch event.Type {
	case events.TaskSubmitted:
		m.totalJobs++
	case events.TaskProcessing:
		m.startedJobs++
	case events.TaskCompleted:
		m.completedJobs++
	case events.TaskFailed:
		m.failedJobs++
	case events.TaskDeleted:
		m.deletedJobs++
	}
	return nil
}

// GetSnapshot returns a snapshot of all metrics
func (m *Metrics) GetSnapshot() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]int64{
		"total_jobs":     m.totalJobs,
		"started_jobs":   m.startedJobs,
		"completed_jobs": m.completedJobs,
		"failed_jobs":    m.failedJobs,
		"deleted_jobs":   m.deletedJobs,
	}
}

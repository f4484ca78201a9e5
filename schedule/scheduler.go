// Package schedule runs the pipeline's periodic maintenance sweeps and keeps
// a record of their last outcome for the operational surface.
package schedule

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Elanstech/barberworld-fulfillment/core"
)

const (
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// Task is one recurring sweep. Run returns how many items the sweep touched.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) (int, error)
}

// RunRecord is the outcome of a task's most recent run.
type RunRecord struct {
	ID        string
	Task      string
	Status    string
	Count     int
	LastError string
	StartedAt time.Time
	Duration  time.Duration
}

type Scheduler struct {
	mu      sync.RWMutex
	tasks   map[string]Task
	records map[string]RunRecord
	logger  core.Logger
	Now     func() time.Time
}

func NewScheduler(logger core.Logger, tasks ...Task) (*Scheduler, error) {
	scheduler := &Scheduler{
		tasks:   map[string]Task{},
		records: map[string]RunRecord{},
		logger:  logger,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, task := range tasks {
		if err := scheduler.Add(task); err != nil {
			return nil, err
		}
	}
	return scheduler, nil
}

func (s *Scheduler) Add(task Task) error {
	if s == nil {
		return fmt.Errorf("schedule: scheduler is nil")
	}
	name := strings.TrimSpace(task.Name)
	if name == "" {
		return fmt.Errorf("schedule: task name is required")
	}
	if task.Interval <= 0 {
		return fmt.Errorf("schedule: task %q interval must be positive", name)
	}
	if task.Run == nil {
		return fmt.Errorf("schedule: task %q run function is required", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tasks[name]; exists {
		return fmt.Errorf("schedule: task %q already registered", name)
	}
	task.Name = name
	s.tasks[name] = task
	return nil
}

// Start launches one loop per task and returns. Loops stop when ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil {
		return
	}
	s.mu.RLock()
	tasks := make([]Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		tasks = append(tasks, task)
	}
	s.mu.RUnlock()

	for _, task := range tasks {
		go s.loop(ctx, task)
	}
}

// RunTask triggers one task immediately, outside its timer.
func (s *Scheduler) RunTask(ctx context.Context, name string) (RunRecord, error) {
	if s == nil {
		return RunRecord{}, fmt.Errorf("schedule: scheduler is nil")
	}
	s.mu.RLock()
	task, ok := s.tasks[strings.TrimSpace(name)]
	s.mu.RUnlock()
	if !ok {
		return RunRecord{}, fmt.Errorf("schedule: task %q not registered", strings.TrimSpace(name))
	}
	return s.runOnce(ctx, task), nil
}

// Snapshot returns the latest run record per task, ordered by task name.
func (s *Scheduler) Snapshot() []RunRecord {
	if s == nil {
		return []RunRecord{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.records))
	for name := range s.records {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]RunRecord, 0, len(names))
	for _, name := range names {
		out = append(out, s.records[name])
	}
	return out
}

func (s *Scheduler) loop(ctx context.Context, task Task) {
	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, task)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, task Task) RunRecord {
	startedAt := s.now()
	count, err := task.Run(ctx)

	record := RunRecord{
		ID:        uuid.NewString(),
		Task:      task.Name,
		Status:    RunStatusSucceeded,
		Count:     count,
		StartedAt: startedAt,
		Duration:  s.now().Sub(startedAt),
	}
	if err != nil {
		record.Status = RunStatusFailed
		record.LastError = strings.TrimSpace(err.Error())
		s.logError(ctx, task.Name, err)
	} else if s.logger != nil {
		s.logger.Info("sweep completed", "task", task.Name, "count", count)
	}

	s.mu.Lock()
	s.records[task.Name] = record
	s.mu.Unlock()
	return record
}

func (s *Scheduler) logError(_ context.Context, name string, err error) {
	if s.logger == nil {
		return
	}
	s.logger.Error("sweep failed", "task", name, "error", err)
}

func (s *Scheduler) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

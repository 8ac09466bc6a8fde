package scheduler

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TaskFn is the function signature for scheduled tasks.
type TaskFn func()

// Scheduler runs named periodic and one-shot deferred tasks. The engine
// uses it for war phase advancement, task generation/expiry sweeps, and
// deferred notification flushes; it never polls engine state itself.
type Scheduler struct {
	mu      sync.Mutex
	cancels map[string]func()
	stopCh  chan struct{}
	stopped bool
	logger  *zap.Logger
}

// New creates a new Scheduler.
func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cancels: make(map[string]func()),
		stopCh:  make(chan struct{}),
		logger:  logger,
	}
}

// Every registers fn to run on a fixed interval. A task with the same
// name replaces the previous one.
func (s *Scheduler) Every(name string, interval time.Duration, fn TaskFn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.removeLocked(name)

	stop := make(chan struct{})
	s.cancels[name] = func() { close(stop) }

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.run(name, fn)
			case <-stop:
				return
			case <-s.stopCh:
				return
			}
		}
	}()
	s.logger.Info("scheduler task registered",
		zap.String("name", name), zap.Duration("interval", interval))
}

// After runs fn once after the given delay. A pending task with the
// same name is replaced, which is what gives deferred notification
// flushes their batching behavior.
func (s *Scheduler) After(name string, delay time.Duration, fn TaskFn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.removeLocked(name)

	timer := time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.cancels, name)
		s.mu.Unlock()
		s.run(name, fn)
	})
	s.cancels[name] = func() { timer.Stop() }
}

// Names returns the names of all registered tasks.
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.cancels))
	for name := range s.cancels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Remove stops and removes a task by name.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(name)
}

func (s *Scheduler) removeLocked(name string) {
	if cancel, ok := s.cancels[name]; ok {
		cancel()
		delete(s.cancels, name)
	}
}

// Stop stops all tasks. The scheduler cannot be restarted.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	close(s.stopCh)
	for name, cancel := range s.cancels {
		cancel()
		delete(s.cancels, name)
	}
}

func (s *Scheduler) run(name string, fn TaskFn) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduler task panicked",
				zap.String("task", name), zap.Any("recover", r))
		}
	}()
	fn()
}

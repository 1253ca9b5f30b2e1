// Package scheduler runs periodic tasks on a single goroutine.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/JakeFAU/weibo-relay/internal/relay"
)

// Task is a named unit of periodic work.
type Task struct {
	Name     string
	Schedule cron.Schedule
	Run      func(ctx context.Context)
}

// ParseSchedule accepts standard five-field cron expressions and descriptors
// such as "@every 10m" or "@hourly".
func ParseSchedule(spec string) (cron.Schedule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, errors.New("schedule required")
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return sched, nil
}

// NewTask parses spec and returns a Task.
func NewTask(name, spec string, run func(ctx context.Context)) (Task, error) {
	sched, err := ParseSchedule(spec)
	if err != nil {
		return Task{}, fmt.Errorf("task %s: %w", name, err)
	}
	return Task{Name: name, Schedule: sched, Run: run}, nil
}

// Scheduler polls its tasks every tick and runs the due ones inline, in order.
type Scheduler struct {
	tasks   []Task
	clock   relay.Clock
	sleeper relay.Sleeper
	tick    time.Duration
	logger  *zap.Logger
}

// New constructs a Scheduler. A non-positive tick defaults to one second.
func New(clock relay.Clock, sleeper relay.Sleeper, tick time.Duration, logger *zap.Logger, tasks ...Task) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tick <= 0 {
		tick = time.Second
	}
	return &Scheduler{tasks: tasks, clock: clock, sleeper: sleeper, tick: tick, logger: logger}
}

// Run executes every task once immediately, then keeps each on its schedule
// until ctx is cancelled. The next run of a task is computed from the time its
// previous run finished, so runs never overlap.
func (s *Scheduler) Run(ctx context.Context) error {
	next := make([]time.Time, len(s.tasks))
	for i := range s.tasks {
		if ctx.Err() != nil {
			return nil
		}
		next[i] = s.runTask(ctx, s.tasks[i])
	}

	for {
		if err := s.sleeper.Sleep(ctx, s.tick); err != nil {
			if ctx.Err() != nil {
				s.logger.Info("scheduler stopped")
				return nil
			}
			return fmt.Errorf("scheduler sleep: %w", err)
		}
		for i := range s.tasks {
			if ctx.Err() != nil {
				return nil
			}
			if s.clock.Now().Before(next[i]) {
				continue
			}
			next[i] = s.runTask(ctx, s.tasks[i])
		}
	}
}

func (s *Scheduler) runTask(ctx context.Context, task Task) time.Time {
	started := s.clock.Now()
	s.logger.Debug("task started", zap.String("task", task.Name))
	task.Run(ctx)
	finished := s.clock.Now()
	next := task.Schedule.Next(finished)
	s.logger.Debug("task finished",
		zap.String("task", task.Name),
		zap.Duration("took", finished.Sub(started)),
		zap.Time("next", next),
	)
	return next
}

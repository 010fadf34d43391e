// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package job runs lightweight maintenance tasks at a fixed interval.
package job

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/wneessen/friendsmap/internal/logger"
)

// Job runs a task at a fixed interval. A run never overlaps with the previous one, a tick
// that fires while the task is still busy is dropped.
type Job struct {
	name     string
	interval time.Duration
	task     func(context.Context)
	logger   *logger.Logger

	runs    atomic.Uint64
	skipped atomic.Uint64
}

func New(name string, interval time.Duration, task func(context.Context), log *logger.Logger) *Job {
	return &Job{name: name, interval: interval, task: task, logger: log}
}

// Start runs the job until ctx is cancelled. A job without task or interval returns at once.
func (j *Job) Start(ctx context.Context) {
	if j.task == nil || j.interval <= 0 {
		return
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	busy := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			select {
			case busy <- struct{}{}:
				j.runs.Add(1)
				go func() {
					defer func() { <-busy }()
					j.task(ctx)
				}()
			default:
				j.skipped.Add(1)
				j.logger.Debug("skipping job run, previous run still in progress", slog.String("job", j.name))
			}
		}
	}
}

// Runs returns how often the task was started.
func (j *Job) Runs() uint64 {
	return j.runs.Load()
}

// Skipped returns how many ticks were dropped because the task was still running.
func (j *Job) Skipped() uint64 {
	return j.skipped.Load()
}

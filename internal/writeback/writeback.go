// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package writeback forwards locally added contacts to the spreadsheet's submission endpoint.
package writeback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wneessen/friendsmap/internal/contact"
	"github.com/wneessen/friendsmap/internal/http"
	"github.com/wneessen/friendsmap/internal/logger"
)

const DefaultTimeout = time.Second * 10

type Outcome string

const (
	OutcomePending   Outcome = "pending"
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	// OutcomeUnknown is reported when the endpoint gives no usable status back, or when no
	// endpoint is configured.
	OutcomeUnknown Outcome = "unknown"
)

var ErrDisabled = errors.New("write-back endpoint not configured")

// Task tracks a single forwarded contact. Done is closed once the outcome is final.
type Task struct {
	id   string
	done chan struct{}

	mu      sync.RWMutex
	outcome Outcome
	err     error
}

func newTask() *Task {
	return &Task{id: uuid.NewString(), done: make(chan struct{}), outcome: OutcomePending}
}

// ID is sent as idempotency key with the request.
func (t *Task) ID() string {
	return t.id
}

func (t *Task) Done() <-chan struct{} {
	return t.done
}

func (t *Task) Outcome() Outcome {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.outcome
}

func (t *Task) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}

func (t *Task) finish(outcome Outcome, err error) {
	t.mu.Lock()
	t.outcome = outcome
	t.err = err
	t.mu.Unlock()
	close(t.done)
}

type Forwarder struct {
	http     *http.Client
	logger   *logger.Logger
	endpoint string
	timeout  time.Duration
	wg       sync.WaitGroup
}

func New(client *http.Client, log *logger.Logger, endpoint string, timeout time.Duration) *Forwarder {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Forwarder{http: client, logger: log, endpoint: endpoint, timeout: timeout}
}

// Enabled reports whether an endpoint is configured.
func (f *Forwarder) Enabled() bool {
	return f.endpoint != ""
}

// Forward posts the contact to the endpoint in the background and returns immediately. The
// request outlives a cancelled ctx, it is only bounded by the forwarder's timeout.
func (f *Forwarder) Forward(ctx context.Context, entry contact.Contact) *Task {
	task := newTask()
	if !f.Enabled() {
		f.logger.Debug("write-back disabled, contact is kept locally only", slog.String("name", entry.Name))
		task.finish(OutcomeUnknown, ErrDisabled)
		return task
	}

	ctx = context.WithoutCancel(ctx)
	f.wg.Go(func() {
		outcome, err := f.post(ctx, task.id, entry)
		if err != nil {
			f.logger.Error("failed to forward contact", logger.Err(err), slog.String("name", entry.Name),
				slog.String("task", task.id))
		} else {
			f.logger.Debug("contact forwarded", slog.String("name", entry.Name), slog.String("outcome", string(outcome)))
		}
		task.finish(outcome, err)
	})
	return task
}

// Wait blocks until all running tasks are finished.
func (f *Forwarder) Wait() {
	f.wg.Wait()
}

func (f *Forwarder) post(ctx context.Context, id string, entry contact.Contact) (Outcome, error) {
	headers := map[string]string{"Idempotency-Key": id}
	code, err := f.http.PostJSON(ctx, f.endpoint, entry, headers, f.timeout)
	switch {
	case err != nil:
		return OutcomeFailed, fmt.Errorf("failed to post contact: %w", err)
	case code == 0:
		return OutcomeUnknown, nil
	case code >= 200 && code < 300:
		return OutcomeSucceeded, nil
	default:
		return OutcomeFailed, fmt.Errorf("%w: %d", http.ErrUnexpectedStatus, code)
	}
}

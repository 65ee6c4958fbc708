package session

import (
	"context"
	"errors"
)

// ErrStopped is returned when a task is submitted after the loop has exited.
var ErrStopped = errors.New("session loop stopped")

// Task mutates the session. Tasks run one at a time, each to completion.
type Task func(*Session)

// Loop owns a Session and serializes every access to it on one goroutine.
// Network calls never run inside a task; they run outside and post their
// results back, so tasks are short and never interleave.
type Loop struct {
	session *Session
	tasks   chan Task
	done    chan struct{}
}

// NewLoop creates a loop around s. Call Run to start processing tasks.
func NewLoop(s *Session) *Loop {
	return &Loop{
		session: s,
		tasks:   make(chan Task, 64),
		done:    make(chan struct{}),
	}
}

// Run processes tasks in FIFO order until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return nil
		case task := <-l.tasks:
			task(l.session)
		}
	}
}

// Do runs task on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, task Task) error {
	finished := make(chan struct{})
	wrapped := func(s *Session) {
		defer close(finished)
		task(s)
	}

	select {
	case l.tasks <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
}

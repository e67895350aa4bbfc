// Package task contains a cancellable task.
package task

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// ErrInterrupted is returned by Pull after the task has been interrupted.
type ErrInterrupted struct{}

// Error implements the error interface.
func (ErrInterrupted) Error() string {
	return "interrupted"
}

// ErrAlreadyStarted is returned by Start when the task cannot be started.
type ErrAlreadyStarted struct{}

// Error implements the error interface.
func (ErrAlreadyStarted) Error() string {
	return "task has already been started"
}

// Task is a routine that can be asked to stop.
// Interruption is cooperative: Run must call Pull periodically
// and return when Pull returns an error.
type Task struct {
	// routine to run.
	Run func() error

	// (optional) parent context.
	Parent context.Context

	id        uuid.UUID
	ctx       context.Context
	ctxCancel func()
	mutex     sync.Mutex
	started   bool
	err       error

	done chan struct{}
}

// Initialize initializes the task.
func (t *Task) Initialize() {
	parent := t.Parent
	if parent == nil {
		parent = context.Background()
	}

	t.id = uuid.New()
	t.ctx, t.ctxCancel = context.WithCancel(parent)
	t.done = make(chan struct{})
}

// ID returns an identifier that is stable for the whole life of the task.
func (t *Task) ID() uuid.UUID {
	return t.id
}

// Context returns a context that is canceled when the task is interrupted.
func (t *Task) Context() context.Context {
	return t.ctx
}

// Start starts the task.
// It returns immediately.
func (t *Task) Start() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.started {
		return ErrAlreadyStarted{}
	}

	if t.ctx.Err() != nil {
		return ErrInterrupted{}
	}

	t.started = true
	go t.run()

	return nil
}

func (t *Task) run() {
	defer close(t.done)
	t.err = t.Run()
}

// Interrupt asks the task to stop.
// It can be called multiple times and from any routine.
func (t *Task) Interrupt() {
	t.ctxCancel()
}

// Interrupted returns whether Interrupt has been called.
func (t *Task) Interrupted() bool {
	return t.ctx.Err() != nil
}

// Pull checks whether the task has been interrupted.
func (t *Task) Pull() error {
	select {
	case <-t.ctx.Done():
		return ErrInterrupted{}
	default:
		return nil
	}
}

// Done returns a channel that is closed when the task has finished.
// If the task has never been started, the channel is never closed.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait waits for the task to finish and returns the error returned by Run.
// It returns immediately when the task has never been started.
func (t *Task) Wait() error {
	t.mutex.Lock()
	started := t.started
	t.mutex.Unlock()

	if !started {
		return nil
	}

	<-t.done
	return t.err
}

// Close interrupts the task and waits for it to finish.
func (t *Task) Close() {
	t.mutex.Lock()
	t.ctxCancel()
	started := t.started
	t.mutex.Unlock()

	if started {
		<-t.done
	}
}

package pak

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
)

// EventKind tells which field of an Event is set.
type EventKind int

const (
	EventState EventKind = iota
	EventProgress
	EventLog
)

// Event is one item of a task's progress stream.
type Event struct {
	Kind     EventKind
	State    State
	Progress int
	Message  string
}

// Runner runs at most one transaction at a time.
type Runner struct {
	mu     sync.Mutex
	active *Task
}

// Task is a transaction running in the background.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
	events chan Event
	once   sync.Once

	mu     sync.Mutex
	queue  []Event
	closed bool
	wake   chan struct{}
	report *Report
	err    error
}

// Start launches opts in a new goroutine. It returns ErrBusy while a
// previous task has not finished.
func (r *Runner) Start(ctx context.Context, opts Options) (*Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		select {
		case <-r.active.done:
		default:
			return nil, &Error{Kind: KindBusy, State: StateIdle, Err: ErrBusy}
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	t := &Task{
		cancel: cancel,
		done:   make(chan struct{}),
		events: make(chan Event),
		wake:   make(chan struct{}, 1),
	}
	r.active = t

	opts = t.hook(opts)
	go t.run(ctx, opts)
	return t, nil
}

// Busy reports whether a task is still running.
func (r *Runner) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return false
	}
	select {
	case <-r.active.done:
		return false
	default:
		return true
	}
}

// hook chains the task's event stream in front of the caller's callbacks.
func (t *Task) hook(opts Options) Options {
	progress, logf, onState := opts.Progress, opts.Log, opts.OnState

	opts.Progress = func(p int) {
		t.emit(Event{Kind: EventProgress, Progress: p})
		if progress != nil {
			progress(p)
		}
	}
	opts.Log = func(format string, args ...any) {
		t.emit(Event{Kind: EventLog, Message: fmt.Sprintf(format, args...)})
		if logf != nil {
			logf(format, args...)
		}
	}
	opts.OnState = func(s State) {
		t.emit(Event{Kind: EventState, State: s})
		if onState != nil {
			onState(s)
		}
	}
	return opts
}

func (t *Task) run(ctx context.Context, opts Options) {
	defer func() {
		if r := recover(); r != nil {
			t.err = &Error{Kind: KindIO, State: StateFailed, Err: fmt.Errorf("panic: %v\n%s", r, debug.Stack())}
		}
		t.cancel()
		t.mu.Lock()
		t.closed = true
		t.mu.Unlock()
		t.signal()
		close(t.done)
	}()

	t.report, t.err = Run(ctx, opts)
}

func (t *Task) emit(ev Event) {
	t.mu.Lock()
	t.queue = append(t.queue, ev)
	t.mu.Unlock()
	t.signal()
}

func (t *Task) signal() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// pump forwards queued events so a slow reader never blocks the transaction.
func (t *Task) pump() {
	defer close(t.events)
	for {
		t.mu.Lock()
		batch := t.queue
		t.queue = nil
		closed := t.closed
		t.mu.Unlock()

		for _, ev := range batch {
			t.events <- ev
		}
		if closed && len(batch) == 0 {
			return
		}
		if len(batch) == 0 {
			<-t.wake
		}
	}
}

// Events streams state, progress and log events in order. The channel is
// closed after the last event once the task finishes. Events are buffered
// until the first call, so late readers still see the whole run.
func (t *Task) Events() <-chan Event {
	t.once.Do(func() { go t.pump() })
	return t.events
}

// Done is closed when the transaction has returned.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the transaction returns.
func (t *Task) Wait() (*Report, error) {
	<-t.done
	return t.report, t.err
}

// Cancel asks the transaction to stop at its next checkpoint.
func (t *Task) Cancel() {
	t.cancel()
}

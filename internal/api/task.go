package api

import "sync"

// Result is the terminal outcome of a task.
type Result struct {
	// SourceURL is the score permalink on success.
	SourceURL string
	Err       error
}

// Task is a progress-observable handle for one asynchronous operation.
// Started fires once when the scheduled work begins, Progress zero or more
// times while it runs, and Finished exactly once with the terminal result.
// Subscribers that attach after an event has fired receive it immediately.
type Task struct {
	mu          sync.Mutex
	started     bool
	finished    bool
	result      Result
	startedFns  []func()
	progressFns []func(current, total int64, message string)
	finishedFns []func(Result)
	done        chan struct{}
}

// NewTask creates an idle task handle.
func NewTask() *Task {
	return &Task{done: make(chan struct{})}
}

// OnStarted registers fn for the started event.
func (t *Task) OnStarted(fn func()) {
	t.mu.Lock()
	started := t.started
	if !started {
		t.startedFns = append(t.startedFns, fn)
	}
	t.mu.Unlock()

	if started {
		fn()
	}
}

// OnProgress registers fn for progress updates.
func (t *Task) OnProgress(fn func(current, total int64, message string)) {
	t.mu.Lock()
	t.progressFns = append(t.progressFns, fn)
	t.mu.Unlock()
}

// OnFinished registers fn for the terminal result.
func (t *Task) OnFinished(fn func(Result)) {
	t.mu.Lock()
	finished := t.finished
	result := t.result
	if !finished {
		t.finishedFns = append(t.finishedFns, fn)
	}
	t.mu.Unlock()

	if finished {
		fn(result)
	}
}

// Wait blocks until the task finishes and returns its result.
func (t *Task) Wait() Result {
	<-t.done
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result
}

func (t *Task) start() {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return
	}
	t.started = true
	fns := t.startedFns
	t.startedFns = nil
	t.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (t *Task) progress(current, total int64, message string) {
	t.mu.Lock()
	fns := append([]func(int64, int64, string){}, t.progressFns...)
	t.mu.Unlock()

	for _, fn := range fns {
		fn(current, total, message)
	}
}

func (t *Task) finish(result Result) {
	t.mu.Lock()
	if t.finished {
		t.mu.Unlock()
		return
	}
	t.finished = true
	t.result = result
	fns := t.finishedFns
	t.finishedFns = nil
	t.mu.Unlock()

	for _, fn := range fns {
		fn(result)
	}
	close(t.done)
}

// Package wizard drives an ordered set of data-entry steps whose last step
// hands off to a long-running server job tracked by polling.
package wizard

import (
	"context"
	stderrors "errors"
	"sync"

	"careerkit/internal/errors"
	"careerkit/internal/poller"
)

// Step collects one payload of the wizard
type Step interface {
	Name() string
	// Ready is the precondition for moving past this step
	Ready() bool
	// Reset restores the default payload
	Reset()
}

// Job is the asynchronous operation started on entering the final step
type Job[R any] interface {
	Start(ctx context.Context) error
	Status(ctx context.Context) (poller.Status[R], error)
}

// Preparer is implemented by jobs that snapshot step payloads when the
// final step is entered. The returned job runs on its own goroutine.
type Preparer[R any] interface {
	Prepare() Job[R]
}

// Phase is the sub-state of the final step
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRunning
	PhaseCompleted
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseRunning:
		return "running"
	case PhaseCompleted:
		return "completed"
	case PhaseFailed:
		return "failed"
	default:
		return "idle"
	}
}

// ErrCancelled is returned by Wait when the run was cancelled or torn down
var ErrCancelled = stderrors.New("wizard cancelled")

// Controller tracks the current step and the final-step job. It is safe for
// concurrent use.
type Controller[R any] struct {
	mu      sync.Mutex
	steps   []Step
	current int // 1-based
	job     Job[R]
	opts    poller.Options[R]
	logger  *errors.Logger

	phase    Phase
	result   R
	err      error
	runID    uint64
	cancel   context.CancelFunc
	done     chan struct{}
	onResult func(R, error)
}

// New creates a controller positioned on step 1
func New[R any](steps []Step, job Job[R], opts poller.Options[R], logger *errors.Logger) *Controller[R] {
	if logger == nil {
		logger = errors.Discard()
	}
	if opts.Logger == nil {
		opts.Logger = logger
	}
	return &Controller[R]{
		steps:   steps,
		current: 1,
		job:     job,
		opts:    opts,
		logger:  logger,
	}
}

// OnResult registers a callback invoked once per run with its outcome
func (c *Controller[R]) OnResult(fn func(R, error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onResult = fn
}

// Current returns the 1-based index of the active step
func (c *Controller[R]) Current() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Len returns the number of steps
func (c *Controller[R]) Len() int { return len(c.steps) }

// Step returns the step at a 1-based index
func (c *Controller[R]) Step(n int) Step { return c.steps[n-1] }

// Next advances one step when the current step's precondition holds
func (c *Controller[R]) Next(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current >= len(c.steps) || !c.steps[c.current-1].Ready() {
		return false
	}
	c.moveTo(ctx, c.current+1)
	return true
}

// Back returns to the previous step; entered data is kept
func (c *Controller[R]) Back() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current <= 1 {
		return false
	}
	c.current--
	return true
}

// JumpTo moves to step n when steps 1..n-1 are all ready
func (c *Controller[R]) JumpTo(ctx context.Context, n int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n < 1 || n > len(c.steps) {
		return false
	}
	for _, s := range c.steps[:n-1] {
		if !s.Ready() {
			c.logger.Debug("Jump blocked by unfinished step", "target", n, "step", s.Name())
			return false
		}
	}
	c.moveTo(ctx, n)
	return true
}

// moveTo sets the cursor and starts the job when the final step is entered
// without a result. Callers hold c.mu.
func (c *Controller[R]) moveTo(ctx context.Context, n int) {
	c.current = n
	if n != len(c.steps) {
		return
	}
	if c.phase == PhaseRunning || c.phase == PhaseCompleted {
		return
	}
	c.startLocked(ctx)
}

func (c *Controller[R]) startLocked(ctx context.Context) {
	c.runID++
	id := c.runID
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	c.cancel = cancel
	c.done = done
	c.phase = PhaseRunning
	c.err = nil

	job := c.job
	if p, ok := job.(Preparer[R]); ok {
		job = p.Prepare()
	}
	c.logger.Info("Starting generation job", "steps", len(c.steps), "run", id)

	go func() {
		defer close(done)
		defer cancel()

		var zero R
		if err := job.Start(runCtx); err != nil {
			c.finish(id, zero, err)
			return
		}
		result, err := poller.Poll(runCtx, job.Status, c.opts)
		c.finish(id, result, err)
	}()
}

// finish records a run's outcome unless the run has been superseded
func (c *Controller[R]) finish(id uint64, result R, err error) {
	c.mu.Lock()
	if id != c.runID {
		c.mu.Unlock()
		c.logger.Debug("Discarding result of superseded run", "run", id)
		return
	}
	c.cancel = nil
	if err != nil {
		c.phase = PhaseFailed
		c.err = err
		c.logger.LogError(err, "Generation job failed", "run", id)
	} else {
		c.phase = PhaseCompleted
		c.result = result
		c.logger.Info("Generation job completed", "run", id)
	}
	onResult := c.onResult
	c.mu.Unlock()

	if onResult != nil {
		onResult(result, err)
	}
}

// Phase reports the final step's sub-state
func (c *Controller[R]) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Result returns the generated result once the job has completed
func (c *Controller[R]) Result() (R, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result, c.phase == PhaseCompleted
}

// Err returns the failure of the last run, if any
func (c *Controller[R]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Wait blocks until the current run ends and returns its outcome
func (c *Controller[R]) Wait(ctx context.Context) (R, error) {
	var zero R

	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return zero, ErrCancelled
	}

	select {
	case <-done:
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.phase {
	case PhaseCompleted:
		return c.result, nil
	case PhaseFailed:
		return zero, c.err
	default:
		return zero, ErrCancelled
	}
}

// Cancel aborts any in-flight poll, resets every step to its default
// payload, and returns to step 1. The server-side job is left alone.
func (c *Controller[R]) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	for _, s := range c.steps {
		s.Reset()
	}
	c.current = 1
	var zero R
	c.result = zero
	c.err = nil
	c.phase = PhaseIdle
	c.logger.Debug("Wizard cancelled and reset")
}

// Close stops polling without touching step payloads
func (c *Controller[R]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	if c.phase == PhaseRunning {
		c.phase = PhaseIdle
	}
}

func (c *Controller[R]) stopLocked() {
	c.runID++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

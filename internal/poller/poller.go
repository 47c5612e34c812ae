// Package poller repeatedly checks the status of a server-side job at a
// fixed interval until it reaches a terminal state.
package poller

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"careerkit/internal/errors"
)

// Outcome classifies one status response
type Outcome int

const (
	Pending Outcome = iota
	Completed
	Failed
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return "pending"
	}
}

// Terminal reports whether polling stops on this outcome
func (o Outcome) Terminal() bool { return o != Pending }

// Status is what a single check observed
type Status[T any] struct {
	Value   T
	Outcome Outcome
	Message string
}

// CheckFunc performs one status request
type CheckFunc[T any] func(ctx context.Context) (Status[T], error)

// Sentinel causes carried by the errors Poll returns
var (
	ErrFailed   = stderrors.New("job failed")
	ErrSkipped  = stderrors.New("job skipped")
	ErrNotFound = stderrors.New("job not found")
	ErrTimeout  = stderrors.New("polling timed out")
)

const (
	DefaultInterval             = 2 * time.Second
	DefaultMaxConsecutiveErrors = 3
)

// Options tune a polling loop
type Options[T any] struct {
	Interval             time.Duration
	MaxConsecutiveErrors int
	// Timeout bounds the whole loop; zero means no bound
	Timeout time.Duration
	// Immediate issues the first check without waiting one interval
	Immediate bool
	// Fatal marks errors that end polling at once, such as a 404
	Fatal      func(error) bool
	OnProgress func(Status[T])
	Logger     *errors.Logger
	Name       string
}

// Poll runs check once per interval until it reports a terminal outcome.
// Checks run one at a time on the calling goroutine, so ticks never overlap.
// Completed returns the value; failed and skipped return a job error.
// A fatal error stops at once; other errors are tolerated until
// MaxConsecutiveErrors of them happen back to back. A response that arrives
// after ctx is done is discarded.
func Poll[T any](ctx context.Context, check CheckFunc[T], opts Options[T]) (T, error) {
	var zero T
	opts.applyDefaults()

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, opts.Timeout, ErrTimeout)
		defer cancel()
	}

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	consecutiveErrors := 0
	for attempt := 1; ; attempt++ {
		if attempt > 1 || !opts.Immediate {
			select {
			case <-ctx.Done():
				return zero, stopped(ctx, opts.Name)
			case <-ticker.C:
			}
		}

		status, err := check(ctx)
		if ctx.Err() != nil {
			return zero, stopped(ctx, opts.Name)
		}

		if err != nil {
			if opts.Fatal != nil && opts.Fatal(err) {
				return zero, errors.NewJobError(errors.ErrCodeJobNotFound,
					fmt.Sprintf("%s no longer exists", opts.Name),
					fmt.Errorf("%w: %w", ErrNotFound, err)).WithContext("attempt", attempt)
			}
			consecutiveErrors++
			opts.log().Warn("Status check failed",
				"job", opts.Name,
				"attempt", attempt,
				"consecutive_errors", consecutiveErrors,
				"error", err.Error())
			if consecutiveErrors >= opts.MaxConsecutiveErrors {
				return zero, errors.NewNetworkError(errors.ErrCodeRequestFailed,
					fmt.Sprintf("polling %s stopped after %d consecutive errors", opts.Name, consecutiveErrors),
					err)
			}
			continue
		}
		consecutiveErrors = 0

		opts.log().Debug("Status check", "job", opts.Name, "attempt", attempt, "outcome", status.Outcome.String())

		switch status.Outcome {
		case Completed:
			return status.Value, nil
		case Failed:
			return status.Value, errors.NewJobError(errors.ErrCodeJobFailed, failureMessage(opts.Name, "failed", status.Message), ErrFailed)
		case Skipped:
			return status.Value, errors.NewJobError(errors.ErrCodeJobSkipped, failureMessage(opts.Name, "was skipped", status.Message), ErrSkipped)
		default:
			if opts.OnProgress != nil {
				opts.OnProgress(status)
			}
		}
	}
}

func (o *Options[T]) applyDefaults() {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.MaxConsecutiveErrors <= 0 {
		o.MaxConsecutiveErrors = DefaultMaxConsecutiveErrors
	}
	if o.Name == "" {
		o.Name = "job"
	}
}

func (o *Options[T]) log() *errors.Logger {
	if o.Logger == nil {
		return errors.Discard()
	}
	return o.Logger
}

func stopped(ctx context.Context, name string) error {
	cause := context.Cause(ctx)
	if stderrors.Is(cause, ErrTimeout) {
		return errors.NewJobError(errors.ErrCodePollTimeout, fmt.Sprintf("%s did not finish in time", name), cause)
	}
	return cause
}

func failureMessage(name, verb, detail string) string {
	if detail == "" {
		return fmt.Sprintf("%s %s", name, verb)
	}
	return fmt.Sprintf("%s %s: %s", name, verb, detail)
}

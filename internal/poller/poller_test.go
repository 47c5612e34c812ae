package poller

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"testing"
	"time"

	"careerkit/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNotFound = stderrors.New("404 not found")

// scripted replays a fixed list of responses, repeating the last one
func scripted(calls *atomic.Int32, responses ...func() (Status[string], error)) CheckFunc[string] {
	return func(context.Context) (Status[string], error) {
		i := int(calls.Add(1)) - 1
		if i >= len(responses) {
			i = len(responses) - 1
		}
		return responses[i]()
	}
}

func pending() (Status[string], error) { return Status[string]{Outcome: Pending}, nil }

func completed(v string) func() (Status[string], error) {
	return func() (Status[string], error) { return Status[string]{Value: v, Outcome: Completed}, nil }
}

func failing(err error) func() (Status[string], error) {
	return func() (Status[string], error) { return Status[string]{}, err }
}

func fastOptions() Options[string] {
	return Options[string]{
		Interval: time.Millisecond,
		Fatal:    func(err error) bool { return stderrors.Is(err, errNotFound) },
		Name:     "test job",
	}
}

func TestPollStopsAfterCompletion(t *testing.T) {
	var calls atomic.Int32
	var progress int
	opts := fastOptions()
	opts.OnProgress = func(Status[string]) { progress++ }

	result, err := Poll(context.Background(), scripted(&calls, pending, pending, completed("resume-1")), opts)

	require.NoError(t, err)
	assert.Equal(t, "resume-1", result)
	assert.Equal(t, int32(3), calls.Load(), "no requests after the terminal status")
	assert.Equal(t, 2, progress)
}

func TestPollTerminalFailures(t *testing.T) {
	tests := []struct {
		name     string
		outcome  Outcome
		sentinel error
		code     string
	}{
		{name: "failed", outcome: Failed, sentinel: ErrFailed, code: errors.ErrCodeJobFailed},
		{name: "skipped", outcome: Skipped, sentinel: ErrSkipped, code: errors.ErrCodeJobSkipped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			check := scripted(&calls, pending, func() (Status[string], error) {
				return Status[string]{Outcome: tt.outcome, Message: "model unavailable"}, nil
			})

			_, err := Poll(context.Background(), check, fastOptions())

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.True(t, errors.HasCode(err, tt.code))
			assert.Contains(t, err.Error(), "model unavailable")
			assert.Equal(t, int32(2), calls.Load())
		})
	}
}

func TestPollNotFoundIsFatal(t *testing.T) {
	var calls atomic.Int32

	_, err := Poll(context.Background(), scripted(&calls, failing(errNotFound)), fastOptions())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, errNotFound)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPollToleratesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	transient := failing(stderrors.New("connection reset"))

	result, err := Poll(context.Background(),
		scripted(&calls, transient, transient, pending, transient, completed("ok")),
		fastOptions())

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, int32(5), calls.Load())
}

func TestPollStopsAfterConsecutiveErrors(t *testing.T) {
	var calls atomic.Int32
	opts := fastOptions()
	opts.MaxConsecutiveErrors = 3

	_, err := Poll(context.Background(), scripted(&calls, failing(stderrors.New("boom"))), opts)

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeRequestFailed))
	assert.Equal(t, int32(3), calls.Load())
}

func TestPollCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	check := func(context.Context) (Status[string], error) {
		if calls.Add(1) == 2 {
			cancel()
			// a late completion after cancellation must be ignored
			return Status[string]{Value: "late", Outcome: Completed}, nil
		}
		return Status[string]{Outcome: Pending}, nil
	}

	result, err := Poll(ctx, check, fastOptions())

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, result)
	assert.Equal(t, int32(2), calls.Load())
}

func TestPollTimeout(t *testing.T) {
	var calls atomic.Int32
	opts := fastOptions()
	opts.Timeout = 20 * time.Millisecond

	_, err := Poll(context.Background(), scripted(&calls, pending), opts)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.True(t, errors.HasCode(err, errors.ErrCodePollTimeout))
}

func TestPollImmediate(t *testing.T) {
	var calls atomic.Int32
	opts := fastOptions()
	opts.Interval = time.Hour
	opts.Immediate = true

	result, err := Poll(context.Background(), scripted(&calls, completed("now")), opts)

	require.NoError(t, err)
	assert.Equal(t, "now", result)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "skipped", Skipped.String())
	assert.False(t, Pending.Terminal())
	assert.True(t, Failed.Terminal())
}

package wizard

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"careerkit/internal/errors"
	"careerkit/internal/poller"
	"careerkit/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type urlStep struct{ url string }

func (s *urlStep) Name() string { return "url" }
func (s *urlStep) Ready() bool  { return s.url != "" }
func (s *urlStep) Reset()       { s.url = "" }

type noteStep struct{ note string }

func (s *noteStep) Name() string { return "note" }
func (s *noteStep) Ready() bool  { return true }
func (s *noteStep) Reset()       { s.note = "" }

// fakeGenerator returns the scripted statuses in order, repeating the last
type fakeGenerator struct {
	mu       sync.Mutex
	statuses []string
	starts   atomic.Int32
	polls    atomic.Int32
	lastReq  types.CustomResumeRequest
	startErr error
	block    chan struct{}
}

func (g *fakeGenerator) StartCustomResume(_ context.Context, req types.CustomResumeRequest) error {
	g.starts.Add(1)
	g.mu.Lock()
	g.lastReq = req
	g.mu.Unlock()
	return g.startErr
}

func (g *fakeGenerator) CustomResumeStatus(ctx context.Context) (*types.CustomResumeStatus, error) {
	if g.block != nil {
		select {
		case <-g.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	i := int(g.polls.Add(1)) - 1
	if i >= len(g.statuses) {
		i = len(g.statuses) - 1
	}
	st := &types.CustomResumeStatus{Status: g.statuses[i]}
	if st.Status == types.StatusCompleted {
		st.Result = &types.Resume{ID: "r-1", Title: "Tailored"}
	}
	if st.Status == types.StatusFailed {
		st.Error = "generation failed upstream"
	}
	return st, nil
}

var errGone = stderrors.New("status 404")

// goneGenerator accepts the job but has lost it by the first status check
type goneGenerator struct {
	fakeGenerator
}

func (g *goneGenerator) CustomResumeStatus(context.Context) (*types.CustomResumeStatus, error) {
	g.polls.Add(1)
	return nil, errGone
}

func (g *goneGenerator) IsNotFound(err error) bool { return stderrors.Is(err, errGone) }

func fastPoll() poller.Options[*types.Resume] {
	return poller.Options[*types.Resume]{Interval: time.Millisecond}
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestJumpToIsGatedByEarlierSteps(t *testing.T) {
	url := &urlStep{}
	gen := &fakeGenerator{statuses: []string{types.StatusProcessing}, block: make(chan struct{})}
	c := New[*types.Resume]([]Step{url, &noteStep{}, &GenerateStep{}}, &resumeJob{gen: gen, wizard: NewResumeWizard(gen, fastPoll(), nil)}, fastPoll(), nil)
	defer c.Close()

	assert.False(t, c.JumpTo(context.Background(), 3))
	assert.Equal(t, 1, c.Current())

	url.url = "https://jobs.example.com/123"
	assert.True(t, c.JumpTo(context.Background(), 3))
	assert.Equal(t, 3, c.Current())
}

func TestNextAndBack(t *testing.T) {
	w := NewResumeWizard(&fakeGenerator{statuses: []string{types.StatusProcessing}}, fastPoll(), nil)
	defer w.Close()
	ctx := context.Background()

	assert.False(t, w.Back(), "cannot go back from step 1")
	assert.False(t, w.Next(ctx), "step 1 needs a URL or manual entry")

	w.JobDescription.Manual = true
	w.JobDescription.Text = "Senior Go engineer"
	require.True(t, w.Next(ctx))
	w.Culture.Info = "remote first"
	require.True(t, w.Next(ctx))
	assert.Equal(t, 3, w.Current())

	require.True(t, w.Back())
	require.True(t, w.Back())
	assert.Equal(t, 1, w.Current())
	assert.Equal(t, "remote first", w.Culture.Info, "going back keeps entered data")
	assert.True(t, w.JobDescription.Manual)
}

func TestFinalStepPollsUntilCompleted(t *testing.T) {
	gen := &fakeGenerator{statuses: []string{types.StatusProcessing, types.StatusProcessing, types.StatusCompleted}}
	w := NewResumeWizard(gen, fastPoll(), nil)

	var delivered atomic.Int32
	w.OnResult(func(*types.Resume, error) { delivered.Add(1) })

	w.JobDescription.URL = "https://jobs.example.com/42"
	w.Selection.PortfolioIDs = []string{"p-1"}
	require.True(t, w.JumpTo(context.Background(), 4))

	result, err := w.Wait(waitCtx(t))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "r-1", result.ID)

	// give a stray tick a chance to show up
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(3), gen.polls.Load())
	assert.Equal(t, int32(1), gen.starts.Load())
	assert.Equal(t, int32(1), delivered.Load(), "result is surfaced exactly once")
	assert.Equal(t, PhaseCompleted, w.Phase())

	gen.mu.Lock()
	assert.Equal(t, "https://jobs.example.com/42", gen.lastReq.JobDescriptionURL)
	assert.Equal(t, []string{"p-1"}, gen.lastReq.PortfolioIDs)
	gen.mu.Unlock()

	// re-entering the final step with a result does not start another job
	require.True(t, w.Back())
	require.True(t, w.Next(context.Background()))
	assert.Equal(t, int32(1), gen.starts.Load())
}

func TestFinalStepTriggersOnceWhileRunning(t *testing.T) {
	gen := &fakeGenerator{statuses: []string{types.StatusProcessing}, block: make(chan struct{})}
	w := NewResumeWizard(gen, fastPoll(), nil)
	defer w.Close()
	ctx := context.Background()

	w.JobDescription.Manual = true
	require.True(t, w.JumpTo(ctx, 4))
	require.True(t, w.Back())
	require.True(t, w.Next(ctx))
	require.True(t, w.JumpTo(ctx, 4))

	assert.Eventually(t, func() bool { return gen.starts.Load() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, PhaseRunning, w.Phase())
}

func TestFinalStepFailure(t *testing.T) {
	gen := &fakeGenerator{statuses: []string{types.StatusProcessing, types.StatusFailed}}
	w := NewResumeWizard(gen, fastPoll(), nil)
	w.JobDescription.URL = "https://jobs.example.com/1"
	require.True(t, w.JumpTo(context.Background(), 4))

	_, err := w.Wait(waitCtx(t))

	require.Error(t, err)
	assert.ErrorIs(t, err, poller.ErrFailed)
	assert.Contains(t, err.Error(), "generation failed upstream")
	assert.Equal(t, PhaseFailed, w.Phase())
	_, ok := w.Result()
	assert.False(t, ok)
}

func TestMissingJobEndsPollingAtOnce(t *testing.T) {
	gen := &goneGenerator{}
	w := NewResumeWizard(gen, fastPoll(), nil)
	w.JobDescription.URL = "https://jobs.example.com/404"
	require.True(t, w.JumpTo(context.Background(), 4))

	_, err := w.Wait(waitCtx(t))

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeJobNotFound), "got %v", err)
	assert.ErrorIs(t, err, poller.ErrNotFound)
	assert.Equal(t, int32(1), gen.polls.Load())
	assert.Equal(t, PhaseFailed, w.Phase())
}

func TestCancelResetsStepsAndStopsPolling(t *testing.T) {
	gen := &fakeGenerator{statuses: []string{types.StatusProcessing}}
	w := NewResumeWizard(gen, fastPoll(), nil)

	w.JobDescription.URL = "https://jobs.example.com/7"
	w.Culture.Info = "small team"
	w.Selection.CareerIDs = []string{"c-1"}
	require.True(t, w.JumpTo(context.Background(), 4))
	assert.Eventually(t, func() bool { return gen.polls.Load() >= 2 }, time.Second, time.Millisecond)

	w.Cancel()

	_, err := w.Wait(waitCtx(t))
	assert.ErrorIs(t, err, ErrCancelled)

	polls := gen.polls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, polls, gen.polls.Load(), "no polls after cancel")

	assert.Equal(t, 1, w.Current())
	assert.Equal(t, PhaseIdle, w.Phase())
	assert.Equal(t, JobDescriptionStep{}, *w.JobDescription)
	assert.Equal(t, CultureStep{}, *w.Culture)
	assert.Equal(t, SelectionStep{}, *w.Selection)
}

func TestStartErrorFailsRun(t *testing.T) {
	gen := &fakeGenerator{statuses: []string{types.StatusProcessing}, startErr: assert.AnError}
	w := NewResumeWizard(gen, fastPoll(), nil)
	w.JobDescription.URL = "https://jobs.example.com/9"
	require.True(t, w.JumpTo(context.Background(), 4))

	_, err := w.Wait(waitCtx(t))

	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, int32(0), gen.polls.Load())
}

func TestResumeStatus(t *testing.T) {
	tests := []struct {
		status  string
		outcome poller.Outcome
	}{
		{types.StatusProcessing, poller.Pending},
		{"queued", poller.Pending},
		{types.StatusCompleted, poller.Completed},
		{types.StatusFailed, poller.Failed},
		{types.StatusSkipped, poller.Skipped},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			st := ResumeStatus(&types.CustomResumeStatus{
				Status:   tt.status,
				Progress: types.GenerationProgress{CurrentStep: "draft", Message: "drafting"},
			})
			if st.Outcome != tt.outcome {
				t.Errorf("Expected outcome %v, got %v", tt.outcome, st.Outcome)
			}
			if st.Message != "drafting" {
				t.Errorf("Expected progress message to carry over, got %q", st.Message)
			}
		})
	}
}

package wizard

import (
	"context"
	"slices"
	"strings"

	"careerkit/internal/errors"
	"careerkit/internal/poller"
	"careerkit/internal/types"
)

// JobDescriptionStep collects the posting: a URL, or manual entry
type JobDescriptionStep struct {
	URL    string
	Manual bool
	Text   string
}

func (s *JobDescriptionStep) Name() string { return "job-description" }

// Ready requires a URL or the manual-entry flag
func (s *JobDescriptionStep) Ready() bool {
	return strings.TrimSpace(s.URL) != "" || s.Manual
}

func (s *JobDescriptionStep) Reset() { *s = JobDescriptionStep{} }

// CultureStep collects optional notes on company culture
type CultureStep struct {
	Info string
}

func (s *CultureStep) Name() string { return "culture" }
func (s *CultureStep) Ready() bool  { return true }
func (s *CultureStep) Reset()       { *s = CultureStep{} }

// SelectionStep picks the portfolio and career records to draw from
type SelectionStep struct {
	PortfolioIDs []string
	CareerIDs    []string
}

func (s *SelectionStep) Name() string { return "selection" }
func (s *SelectionStep) Ready() bool  { return true }
func (s *SelectionStep) Reset()       { *s = SelectionStep{} }

// GenerateStep is the final step; entering it starts generation
type GenerateStep struct{}

func (s *GenerateStep) Name() string { return "generate" }
func (s *GenerateStep) Ready() bool  { return true }
func (s *GenerateStep) Reset()       {}

// ResumeGenerator is the backend surface the resume wizard needs
type ResumeGenerator interface {
	StartCustomResume(ctx context.Context, req types.CustomResumeRequest) error
	CustomResumeStatus(ctx context.Context) (*types.CustomResumeStatus, error)
}

// NotFoundReporter is implemented by generators that can tell a vanished
// job from a transient status failure
type NotFoundReporter interface {
	IsNotFound(err error) bool
}

// ResumeWizard is the four-step custom resume flow
type ResumeWizard struct {
	*Controller[*types.Resume]

	JobDescription *JobDescriptionStep
	Culture        *CultureStep
	Selection      *SelectionStep
	Generate       *GenerateStep
}

// NewResumeWizard wires the resume steps to a generator. Unless opts
// already sets Fatal, a generator that reports missing jobs ends polling on
// the first not-found status.
func NewResumeWizard(gen ResumeGenerator, opts poller.Options[*types.Resume], logger *errors.Logger) *ResumeWizard {
	w := &ResumeWizard{
		JobDescription: &JobDescriptionStep{},
		Culture:        &CultureStep{},
		Selection:      &SelectionStep{},
		Generate:       &GenerateStep{},
	}
	if opts.Name == "" {
		opts.Name = "custom resume generation"
	}
	if nf, ok := gen.(NotFoundReporter); ok && opts.Fatal == nil {
		opts.Fatal = nf.IsNotFound
	}
	steps := []Step{w.JobDescription, w.Culture, w.Selection, w.Generate}
	w.Controller = New[*types.Resume](steps, &resumeJob{gen: gen, wizard: w}, opts, logger)
	return w
}

// Request assembles the generation payload from the step data
func (w *ResumeWizard) Request() types.CustomResumeRequest {
	return types.CustomResumeRequest{
		JobDescriptionURL:  strings.TrimSpace(w.JobDescription.URL),
		JobDescriptionText: w.JobDescription.Text,
		ManualEntry:        w.JobDescription.Manual,
		CultureInfo:        w.Culture.Info,
		PortfolioIDs:       slices.Clone(w.Selection.PortfolioIDs),
		CareerIDs:          slices.Clone(w.Selection.CareerIDs),
	}
}

type resumeJob struct {
	gen     ResumeGenerator
	wizard  *ResumeWizard
	request types.CustomResumeRequest
}

func (j *resumeJob) Prepare() Job[*types.Resume] {
	return &resumeJob{gen: j.gen, wizard: j.wizard, request: j.wizard.Request()}
}

func (j *resumeJob) Start(ctx context.Context) error {
	return j.gen.StartCustomResume(ctx, j.request)
}

func (j *resumeJob) Status(ctx context.Context) (poller.Status[*types.Resume], error) {
	st, err := j.gen.CustomResumeStatus(ctx)
	if err != nil {
		return poller.Status[*types.Resume]{}, err
	}
	return ResumeStatus(st), nil
}

// ResumeStatus maps a generation status response onto a poll outcome.
// Unknown statuses keep polling.
func ResumeStatus(st *types.CustomResumeStatus) poller.Status[*types.Resume] {
	out := poller.Status[*types.Resume]{Value: st.Result, Message: st.Progress.Message}
	switch st.Status {
	case types.StatusCompleted:
		out.Outcome = poller.Completed
	case types.StatusFailed:
		out.Outcome = poller.Failed
	case types.StatusSkipped:
		out.Outcome = poller.Skipped
	default:
		out.Outcome = poller.Pending
	}
	if st.Error != "" {
		out.Message = st.Error
	}
	return out
}

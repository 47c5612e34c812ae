package cli

import (
	"context"
	"time"

	"careerkit/internal/api"
	"careerkit/internal/common"
	"careerkit/internal/errors"
	"careerkit/internal/poller"
	"careerkit/internal/resume"
	"careerkit/internal/types"
	"careerkit/internal/wizard"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
)

var resumes = collection[types.Resume]{
	noun:   "resume",
	plural: "resumes",
	docs:   (*api.Client).Resumes,
}

func newResumeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Generate and manage resumes",
	}
	cmd.AddCommand(newGenerateCmd())
	cmd.AddCommand(newReorderCmd())
	cmd.AddCommand(resumes.commands()...)
	return cmd
}

// generateFlags mirror the steps of the resume wizard
type generateFlags struct {
	jobURL       string
	jobFile      string
	culture      string
	cultureFile  string
	portfolioIDs []string
	careerIDs    []string
}

// fill copies the flags into the wizard steps, reading files as needed
func (gf *generateFlags) fill(w *wizard.ResumeWizard, fp *common.FileProcessor, maxSize int64) error {
	w.JobDescription.URL = gf.jobURL
	if gf.jobFile != "" {
		text, err := fp.ReadFile(gf.jobFile, maxSize)
		if err != nil {
			return err
		}
		w.JobDescription.Manual = true
		w.JobDescription.Text = text
	}

	w.Culture.Info = gf.culture
	if gf.cultureFile != "" {
		text, err := fp.ReadFile(gf.cultureFile, maxSize)
		if err != nil {
			return err
		}
		w.Culture.Info = text
	}

	w.Selection.PortfolioIDs = gf.portfolioIDs
	w.Selection.CareerIDs = gf.careerIDs
	return nil
}

func newGenerateCmd() *cobra.Command {
	var (
		cc common.CommandConfig
		gf generateFlags
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a resume tailored to a job description",
		Long: `Generate a resume tailored to a job description. The job description is
given as a URL (--job-url) or as a file with the posting text (--job-file).
Company culture notes and the portfolio and career records to draw from are
optional. The command waits for the generation job and prints the resume.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return prepareOutput(cmd, &cc)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, span := rt.Span(cmd.Context(), "resume.generate")
			defer span.End()

			client, err := rt.Client()
			if err != nil {
				return err
			}

			opts := pollOptions(rt, func(s poller.Status[*types.Resume]) {
				if s.Message != "" {
					rt.logger.Info("Generating resume", "progress", s.Message)
				}
			})
			opts.Fatal = api.IsNotFound
			w := wizard.NewResumeWizard(client, opts, rt.logger)
			defer w.Close()

			if err := gf.fill(w, common.NewFileProcessor(rt.logger), cc.MaxFileSize); err != nil {
				return err
			}
			if !w.JumpTo(ctx, w.Len()) {
				return errors.NewValidationError(errors.ErrCodeStepNotReady,
					"a job description is required: pass --job-url or --job-file", nil)
			}
			span.SetAttributes(
				attribute.Bool("manual_entry", w.JobDescription.Manual),
				attribute.Int("portfolios", len(gf.portfolioIDs)),
				attribute.Int("careers", len(gf.careerIDs)),
			)

			started := time.Now()
			return common.RunQuery(ctx, rt.logger, cc, func(ctx context.Context) (*types.Resume, error) {
				result, err := w.Wait(ctx)
				rt.RecordJob(ctx, "resume", started, err)
				if err != nil {
					return nil, err
				}
				if result == nil {
					return nil, errors.NewJobError(errors.ErrCodeJobFailed,
						"resume generation completed without a result", nil)
				}
				rt.logger.Info("Resume generated", "id", result.ID, "sections", len(result.Sections))
				return result, nil
			})
		},
	}

	cmd.Flags().StringVar(&gf.jobURL, "job-url", "", "URL of the job posting")
	cmd.Flags().StringVar(&gf.jobFile, "job-file", "", "File with the job posting text, '-' for stdin")
	cmd.Flags().StringVar(&gf.culture, "culture", "", "Notes on the company culture")
	cmd.Flags().StringVar(&gf.cultureFile, "culture-file", "", "File with notes on the company culture")
	cmd.Flags().StringSliceVar(&gf.portfolioIDs, "portfolio", nil, "Portfolio ID to draw from (repeatable)")
	cmd.Flags().StringSliceVar(&gf.careerIDs, "career", nil, "Career record ID to draw from (repeatable)")
	cmd.MarkFlagsMutuallyExclusive("culture", "culture-file")
	addOutputFlags(cmd, &cc)
	return cmd
}

func newReorderCmd() *cobra.Command {
	var (
		cc        common.CommandConfig
		sectionID string
		from, to  int
	)

	cmd := &cobra.Command{
		Use:   "reorder ID",
		Short: "Move a resume section to a new position",
		Long: `Move one section of a stored resume to a new position and save the result.
Positions start at 1. Pick the section by --section ID or by its current
position with --from.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if sectionID == "" && !cmd.Flags().Changed("from") {
				return errors.NewValidationError(errors.ErrCodeInvalidRequest,
					"pass --section or --from to choose the section to move", nil)
			}
			return prepareOutput(cmd, &cc)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return query(cmd, resumes, cc, "resume.reorder", func(ctx context.Context, d *api.Documents[types.Resume]) (*types.Resume, error) {
				doc, err := d.Get(ctx, args[0])
				if err != nil {
					return nil, err
				}

				sections := resume.Sort(doc.Sections)
				if sectionID != "" {
					sections, err = resume.MoveByID(sections, sectionID, to-1)
				} else {
					sections, err = resume.Move(sections, from-1, to-1)
				}
				if err != nil {
					return nil, err
				}

				doc.Sections = sections
				return d.Update(ctx, args[0], doc)
			})
		},
	}

	cmd.Flags().StringVar(&sectionID, "section", "", "ID of the section to move")
	cmd.Flags().IntVar(&from, "from", 0, "Current position of the section to move")
	cmd.Flags().IntVar(&to, "to", 0, "New position of the section")
	cmd.MarkFlagsMutuallyExclusive("section", "from")
	_ = cmd.MarkFlagRequired("to")
	addOutputFlags(cmd, &cc)
	return cmd
}

package cli

import (
	"context"
	"fmt"

	"careerkit/internal/ai"
	"careerkit/internal/api"
	"careerkit/internal/common"
	"careerkit/internal/observability"
	"careerkit/internal/types"

	"github.com/spf13/cobra"
)

var jobDescriptions = collection[types.JobDescription]{
	noun:   "job description",
	plural: "job descriptions",
	docs:   (*api.Client).JobDescriptions,
}

func newJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "jobs",
		Aliases: []string{"job"},
		Short:   "Manage job descriptions",
	}
	cmd.AddCommand(newJobCreateCmd())
	cmd.AddCommand(newJobUpdateCmd())
	cmd.AddCommand(newJobExtractCmd())
	cmd.AddCommand(jobDescriptions.commands()...)
	return cmd
}

func newJobCreateCmd() *cobra.Command {
	var (
		cc   common.CommandConfig
		file string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Store a job description read from a JSON or YAML file",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return prepareOutput(cmd, &cc)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return query(cmd, jobDescriptions, cc, "jobs.create", func(ctx context.Context, d *api.Documents[types.JobDescription]) (*types.JobDescription, error) {
				jd, err := common.ReadDocument[types.JobDescription](common.NewFileProcessor(nil), file, cc.MaxFileSize)
				if err != nil {
					return nil, err
				}
				return d.Create(ctx, &jd)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON or YAML file with the job description")
	_ = cmd.MarkFlagRequired("file")
	addOutputFlags(cmd, &cc)
	return cmd
}

func newJobUpdateCmd() *cobra.Command {
	var (
		cc   common.CommandConfig
		file string
	)

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Replace a stored job description with one read from a file",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return prepareOutput(cmd, &cc)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return query(cmd, jobDescriptions, cc, "jobs.update", func(ctx context.Context, d *api.Documents[types.JobDescription]) (*types.JobDescription, error) {
				jd, err := common.ReadDocument[types.JobDescription](common.NewFileProcessor(nil), file, cc.MaxFileSize)
				if err != nil {
					return nil, err
				}
				return d.Update(ctx, args[0], &jd)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON or YAML file with the job description")
	_ = cmd.MarkFlagRequired("file")
	addOutputFlags(cmd, &cc)
	return cmd
}

func newJobExtractCmd() *cobra.Command {
	var (
		cc        common.CommandConfig
		sourceURL string
		save      bool
	)

	cmd := &cobra.Command{
		Use:   "extract [posting-file]",
		Short: "Extract a structured job description from a posting",
		Long: `Extract a structured job description from the raw text of a job posting
using the configured AI provider. Pass '-' to read the posting from stdin.
With --save the extracted record is stored in the workspace.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return prepareOutput(cmd, &cc)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			extractAIConfig := rt.cfg.GetExtractConfig()
			aiService, err := ai.NewService(&extractAIConfig, "extract", rt.logger)
			if err != nil {
				return fmt.Errorf("failed to create AI service: %w", err)
			}
			defer aiService.Close()

			createInput := func(contents []string) (types.ExtractJobInput, error) {
				if len(contents) != 1 {
					return types.ExtractJobInput{}, fmt.Errorf("expected 1 file path, got %d", len(contents))
				}
				return types.ExtractJobInput{Posting: contents[0]}, nil
			}

			logDetails := func(input types.ExtractJobInput, cfg common.CommandConfig) {
				rt.logger.Info("Starting job description extraction",
					"posting_chars", len(input.Posting),
					"save", save,
					"output_format", cfg.OutputFormat)
			}

			extractOperation := func(ctx context.Context, input types.ExtractJobInput) (types.JobDescription, *ai.TokenUsage, error) {
				var (
					jd    types.JobDescription
					usage *ai.TokenUsage
				)
				err := rt.obs.Metrics().TrackAIOperationWithTokens(ctx, "extract", func(ctx context.Context) *observability.AIOperationResult {
					var err error
					jd, usage, err = aiService.ExtractJobDescription(ctx, input.Posting, sourceURL)
					return &observability.AIOperationResult{
						Error:      err,
						TokenUsage: (*observability.TokenUsage)(usage),
					}
				})
				if err != nil || !save {
					return jd, usage, err
				}

				client, err := rt.Client()
				if err != nil {
					return jd, usage, err
				}
				created, err := client.JobDescriptions().Create(ctx, &jd)
				if err != nil {
					return jd, usage, err
				}
				rt.logger.Info("Job description stored", "id", created.ID)
				return *created, usage, nil
			}

			err = common.RunAICommand(
				cmd.Context(),
				rt.logger,
				cc,
				args,
				createInput,
				extractOperation,
				logDetails,
			)
			if err != nil {
				if stats := aiService.BreakerStats(); stats != nil {
					rt.logger.Debug("AI circuit breaker state", "stats", stats)
				}
				return fmt.Errorf("failed to extract job description: %w", err)
			}
			rt.logger.Info("Job description extraction completed successfully")
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceURL, "url", "", "URL the posting was taken from")
	cmd.Flags().BoolVar(&save, "save", false, "Store the extracted job description in the workspace")
	addOutputFlags(cmd, &cc)
	return cmd
}

package cli

import (
	"context"
	"fmt"

	"careerkit/internal/config"
	"careerkit/internal/errors"

	"github.com/spf13/cobra"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

// Use variables of these types as the keys.
var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "careerkit",
		Short: "A CLI client for the careerkit workspace",
		Long: `Careerkit is a command-line client for a careerkit workspace. It lets you
browse GitHub repositories and save selected files to your workspace, generate
tailored resumes from a job description, and manage the resumes, portfolios,
and job descriptions stored there.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newGitHubCmd())
	root.AddCommand(newResumeCmd())
	root.AddCommand(newPortfolioCmd())
	root.AddCommand(newJobsCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the command tree named by os.Args
func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	return newRootCmd().ExecuteContext(withDependencies(ctx, cfg, logger))
}

// withDependencies attaches the config and logger to the context, making
// them available to all subcommands
func withDependencies(ctx context.Context, cfg *config.Config, logger *errors.Logger) context.Context {
	ctx = context.WithValue(ctx, configKey, cfg)
	return context.WithValue(ctx, loggerKey, logger)
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) (*config.Config, error) {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok && cfg != nil {
		return cfg, nil
	}
	return nil, fmt.Errorf("config not found in context")
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) (*errors.Logger, error) {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok && logger != nil {
		return logger, nil
	}
	return nil, fmt.Errorf("logger not found in context")
}

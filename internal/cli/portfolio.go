package cli

import (
	"careerkit/internal/api"
	"careerkit/internal/types"

	"github.com/spf13/cobra"
)

var portfolios = collection[types.Portfolio]{
	noun:   "portfolio",
	plural: "portfolios",
	docs:   (*api.Client).Portfolios,
}

func newPortfolioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Manage portfolios",
	}
	cmd.AddCommand(portfolios.commands()...)
	return cmd
}

package cli

import (
	"context"
	"fmt"

	"careerkit/internal/api"
	"careerkit/internal/common"

	"github.com/spf13/cobra"
)

// collection describes one document type stored in the workspace
type collection[T any] struct {
	noun   string
	plural string
	docs   func(*api.Client) *api.Documents[T]
}

// commands returns the list, get and delete commands for the collection
func (c collection[T]) commands() []*cobra.Command {
	return []*cobra.Command{c.listCmd(), c.getCmd(), c.deleteCmd()}
}

// query runs fn against the collection and prints its result
func query[T, Out any](cmd *cobra.Command, c collection[T], cc common.CommandConfig, span string,
	fn func(context.Context, *api.Documents[T]) (Out, error)) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, s := rt.Span(cmd.Context(), span)
	defer s.End()

	client, err := rt.Client()
	if err != nil {
		return err
	}
	docs := c.docs(client)
	return common.RunQuery(ctx, rt.logger, cc, func(ctx context.Context) (Out, error) {
		return fn(ctx, docs)
	})
}

func (c collection[T]) listCmd() *cobra.Command {
	var cc common.CommandConfig
	cmd := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List your %s", c.plural),
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return prepareOutput(cmd, &cc)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return query(cmd, c, cc, c.noun+".list", func(ctx context.Context, d *api.Documents[T]) ([]T, error) {
				return d.List(ctx)
			})
		},
	}
	addOutputFlags(cmd, &cc)
	return cmd
}

func (c collection[T]) getCmd() *cobra.Command {
	var cc common.CommandConfig
	cmd := &cobra.Command{
		Use:   "get ID",
		Short: fmt.Sprintf("Show one %s", c.noun),
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return prepareOutput(cmd, &cc)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return query(cmd, c, cc, c.noun+".get", func(ctx context.Context, d *api.Documents[T]) (*T, error) {
				return d.Get(ctx, args[0])
			})
		},
	}
	addOutputFlags(cmd, &cc)
	return cmd
}

func (c collection[T]) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: fmt.Sprintf("Delete a %s", c.noun),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, span := rt.Span(cmd.Context(), c.noun+".delete")
			defer span.End()

			client, err := rt.Client()
			if err != nil {
				return err
			}
			if err := c.docs(client).Delete(ctx, args[0]); err != nil {
				return err
			}
			rt.logger.Info("Document deleted", "type", c.noun, "id", args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %s\n", c.noun, args[0])
			return nil
		},
	}
}

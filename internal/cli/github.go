package cli

import (
	"context"
	"fmt"
	"time"

	"careerkit/internal/api"
	"careerkit/internal/common"
	"careerkit/internal/errors"
	"careerkit/internal/poller"
	"careerkit/internal/store"
	"careerkit/internal/tree"
	"careerkit/internal/tui"
	"careerkit/internal/types"
	"careerkit/internal/utils"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
)

func newGitHubCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "github",
		Short: "Browse repositories and save their files to your workspace",
		Long: `Browse the files of a GitHub repository connected to your workspace, pick
the files and directories to keep, and save them for use in portfolios and
generated resumes. Selections are remembered per repository and branch.`,
	}
	cmd.AddCommand(newFilesCmd())
	cmd.AddCommand(newPickCmd())
	cmd.AddCommand(newSaveCmd())
	cmd.AddCommand(newForgetCmd())
	cmd.AddCommand(newSelectionsCmd())
	return cmd
}

// selectionFlags choose the files a repository command works on
type selectionFlags struct {
	branch  string
	globs   []string
	restore bool
}

func (sf *selectionFlags) register(cmd *cobra.Command, restoreDefault bool) {
	cmd.Flags().StringVar(&sf.branch, "branch", "", "Branch to read (default: github.defaultBranch)")
	cmd.Flags().StringSliceVar(&sf.globs, "glob", nil, "Select files matching a glob pattern (repeatable)")
	cmd.Flags().BoolVar(&sf.restore, "restore", restoreDefault, "Start from the selection saved for this repository and branch")
}

func (sf *selectionFlags) branchOr(rt *runtime) string {
	if sf.branch != "" {
		return sf.branch
	}
	return rt.cfg.GitHub.DefaultBranch
}

// loadTree fetches a repository listing and builds its selection tree
func loadTree(ctx context.Context, rt *runtime, fullName string) (*tree.Tree, string, error) {
	owner, repo, err := api.SplitRepository(fullName)
	if err != nil {
		return nil, "", err
	}
	client, err := rt.Client()
	if err != nil {
		return nil, "", err
	}

	files, err := client.RepositoryFiles(ctx, owner, repo)
	if err != nil {
		return nil, "", err
	}
	t := tree.Build(tree.FromRepoFiles(files.Files))
	if orphans := t.Orphans(); len(orphans) > 0 {
		rt.logger.Warn("Repository listing has entries without a parent directory",
			"count", len(orphans), "first", orphans[0])
	}
	rt.logger.Debug("Built repository tree", "repository", owner+"/"+repo, "nodes", t.Len())
	return t, owner + "/" + repo, nil
}

// applySelection restores the saved selection and then applies any globs
func applySelection(ctx context.Context, rt *runtime, t *tree.Tree, repository, branch string, sf *selectionFlags) error {
	if sf.restore {
		st, err := rt.Store()
		if err != nil {
			return err
		}
		sel, err := st.Load(ctx, repository, branch)
		if err != nil {
			return err
		}
		if len(sel.Paths) > 0 {
			n := t.ApplyInitialSelection(sel.Paths)
			rt.logger.Info("Restored saved selection", "repository", repository, "branch", branch,
				"saved_paths", len(sel.Paths), "applied", n)
		}
	}

	for _, pattern := range sf.globs {
		n, err := t.SelectGlob(pattern)
		if err != nil {
			return errors.NewValidationError(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("invalid glob pattern %q", pattern), err)
		}
		rt.logger.Debug("Applied glob", "pattern", pattern, "matched", n)
	}
	return nil
}

func newFilesCmd() *cobra.Command {
	var (
		cc common.CommandConfig
		sf selectionFlags
	)

	cmd := &cobra.Command{
		Use:   "files OWNER/REPO",
		Short: "Print the file tree of a repository",
		Long: `Print the file tree of a repository with the current selection marked:
[x] selected, [-] partially selected, [ ] not selected.`,
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

			ctx, span := rt.Span(cmd.Context(), "github.files")
			defer span.End()

			branch := sf.branchOr(rt)
			return common.RunQuery(ctx, rt.logger, cc, func(ctx context.Context) (types.FileListing, error) {
				t, repository, err := loadTree(ctx, rt, args[0])
				if err != nil {
					return types.FileListing{}, err
				}
				if err := applySelection(ctx, rt, t, repository, branch, &sf); err != nil {
					return types.FileListing{}, err
				}
				return t.Listing(repository, branch), nil
			})
		},
	}
	sf.register(cmd, false)
	addOutputFlags(cmd, &cc)
	return cmd
}

func newPickCmd() *cobra.Command {
	var (
		cc     common.CommandConfig
		sf     selectionFlags
		submit bool
	)

	cmd := &cobra.Command{
		Use:   "pick OWNER/REPO",
		Short: "Choose files interactively",
		Long: `Open an interactive tree of the repository. Selecting a directory selects
everything under it. Press r to fetch the listing again; the current
selection carries over. Confirming stores the selection locally; with
--submit the selected files are also saved to your workspace.`,
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

			ctx, span := rt.Span(cmd.Context(), "github.pick")
			defer span.End()

			branch := sf.branchOr(rt)
			t, repository, err := loadTree(ctx, rt, args[0])
			if err != nil {
				return err
			}
			if err := applySelection(ctx, rt, t, repository, branch, &sf); err != nil {
				return err
			}

			refetch := func(ctx context.Context) (*tree.Tree, error) {
				fresh, _, err := loadTree(ctx, rt, repository)
				return fresh, err
			}
			result, err := tui.RunPicker(ctx, t, fmt.Sprintf("%s (%s)", repository, branch), refetch)
			if err != nil {
				return fmt.Errorf("picker failed: %w", err)
			}
			if !result.Confirmed {
				rt.logger.Info("Selection cancelled; nothing was saved")
				return nil
			}

			st, err := rt.Store()
			if err != nil {
				return err
			}
			if err := st.Save(ctx, store.Selection{
				Repository: repository,
				Branch:     branch,
				Paths:      result.Paths,
				SavedAt:    time.Now(),
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Saved selection for %s (%s): %d files, %s\n",
				repository, branch, len(result.Files), utils.FormatFileSize(result.Size))

			if !submit {
				return nil
			}
			return submitFiles(ctx, rt, cc, repository, branch, result.Files, true)
		},
	}
	sf.register(cmd, true)
	cmd.Flags().BoolVar(&submit, "submit", false, "Save the selected files to the workspace after confirming")
	addOutputFlags(cmd, &cc)
	return cmd
}

func newSaveCmd() *cobra.Command {
	var (
		cc     common.CommandConfig
		sf     selectionFlags
		noWait bool
	)

	cmd := &cobra.Command{
		Use:   "save OWNER/REPO",
		Short: "Save the selected files to your workspace",
		Long: `Send the selected files of a repository to your workspace and wait for the
save task to finish. The selection comes from the one stored by 'pick',
narrowed or extended with --glob.`,
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

			ctx, span := rt.Span(cmd.Context(), "github.save")
			defer span.End()

			branch := sf.branchOr(rt)
			t, repository, err := loadTree(ctx, rt, args[0])
			if err != nil {
				return err
			}
			if err := applySelection(ctx, rt, t, repository, branch, &sf); err != nil {
				return err
			}

			files := t.SelectedFiles()
			if len(files) == 0 {
				return errors.NewValidationError(errors.ErrCodeInvalidRequest,
					"no files selected; pass --glob or run 'careerkit github pick' first", nil)
			}
			span.SetAttributes(attribute.String("repository", repository), attribute.Int("files", len(files)))
			return submitFiles(ctx, rt, cc, repository, branch, files, !noWait)
		},
	}
	sf.register(cmd, true)
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Print the task ID without waiting for the task to finish")
	addOutputFlags(cmd, &cc)
	return cmd
}

// submitFiles starts a save-files task and, when wait is set, polls it to
// the end and prints the final status
func submitFiles(ctx context.Context, rt *runtime, cc common.CommandConfig, repository, branch string, files []string, wait bool) error {
	client, err := rt.Client()
	if err != nil {
		return err
	}

	resp, err := client.SaveFiles(ctx, types.SaveFilesRequest{
		Repository: repository,
		FilePaths:  files,
		Branch:     branch,
	})
	if err != nil {
		return err
	}
	rt.logger.Info("Save task started", "task_id", resp.TaskID, "repository", repository, "files", len(files))

	if !wait {
		_, err := fmt.Fprintln(cc.Out, resp.TaskID)
		return err
	}

	started := time.Now()
	status, err := client.WaitForTask(ctx, resp.TaskID, pollOptions(rt, func(s poller.Status[*types.SaveTaskStatus]) {
		if s.Value == nil {
			return
		}
		rt.logger.Info("Saving files",
			"completed", s.Value.CompletedFiles,
			"total", s.Value.TotalFiles,
			"progress", s.Value.Progress)
	}))
	rt.RecordJob(ctx, "save-files", started, err)

	if status != nil {
		if outErr := common.NewOutputHandler(rt.logger).HandleOutput(status, cc); outErr != nil && err == nil {
			return outErr
		}
	}
	return err
}

func newForgetCmd() *cobra.Command {
	var branch string

	cmd := &cobra.Command{
		Use:   "forget OWNER/REPO",
		Short: "Remove the stored selection for a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			owner, repo, err := api.SplitRepository(args[0])
			if err != nil {
				return err
			}
			if branch == "" {
				branch = rt.cfg.GitHub.DefaultBranch
			}

			st, err := rt.Store()
			if err != nil {
				return err
			}
			if err := st.Delete(cmd.Context(), owner+"/"+repo, branch); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed selection for %s/%s (%s)\n", owner, repo, branch)
			return nil
		},
	}
	cmd.Flags().StringVar(&branch, "branch", "", "Branch (default: github.defaultBranch)")
	return cmd
}

func newSelectionsCmd() *cobra.Command {
	var cc common.CommandConfig

	cmd := &cobra.Command{
		Use:   "selections",
		Short: "List the selections stored on this machine",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return prepareOutput(cmd, &cc)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			return common.RunQuery(cmd.Context(), rt.logger, cc, func(ctx context.Context) ([]store.Selection, error) {
				st, err := rt.Store()
				if err != nil {
					return nil, err
				}
				sels, err := st.List(ctx)
				if err != nil {
					return nil, err
				}
				if sels == nil {
					sels = []store.Selection{}
				}
				return sels, nil
			})
		},
	}
	addOutputFlags(cmd, &cc)
	return cmd
}

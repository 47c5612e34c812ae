package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"careerkit/internal/errors"
	"careerkit/internal/poller"
	"careerkit/internal/types"
)

// SplitRepository parses "owner/repo"
func SplitRepository(full string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(strings.Trim(full, "/"), "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("repository must look like OWNER/REPO, got %q", full), nil)
	}
	return owner, repo, nil
}

// RepositoryFiles fetches the flat file listing of an ingested repository
func (c *Client) RepositoryFiles(ctx context.Context, owner, repo string) (*types.RepositoryFiles, error) {
	var out types.RepositoryFiles
	err := c.do(ctx, request{
		endpoint: endpointGitHub,
		method:   http.MethodGet,
		path:     c.resumePath("github", "users", c.session.UserID, "db", "repositories", owner, repo),
		out:      &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveFiles starts a server-side task that ingests the given files
func (c *Client) SaveFiles(ctx context.Context, req types.SaveFilesRequest) (*types.SaveFilesResponse, error) {
	if len(req.FilePaths) == 0 {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "no files selected", nil)
	}

	var out types.SaveFilesResponse
	err := c.do(ctx, request{
		endpoint: endpointGitHub,
		method:   http.MethodPost,
		path:     c.resumePath("github", "users", c.session.UserID, "save-files"),
		body:     req,
		out:      &out,
	})
	if err != nil {
		return nil, err
	}
	if out.TaskID == "" {
		return nil, errors.NewNetworkError(errors.ErrCodeDecodeResponse, "save-files response carried no taskId", nil)
	}
	return &out, nil
}

// TaskStatus reads the progress of a save-files task
func (c *Client) TaskStatus(ctx context.Context, taskID string) (*types.SaveTaskStatus, error) {
	var out types.SaveTaskStatus
	err := c.do(ctx, request{
		endpoint: endpointGitHub,
		method:   http.MethodGet,
		path:     c.resumePath("github", "tasks", taskID),
		out:      &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// WaitForTask polls a save-files task until it completes or fails.
// A 404 ends polling at once.
func (c *Client) WaitForTask(ctx context.Context, taskID string, opts poller.Options[*types.SaveTaskStatus]) (*types.SaveTaskStatus, error) {
	if opts.Fatal == nil {
		opts.Fatal = IsNotFound
	}
	if opts.Name == "" {
		opts.Name = "save-files task " + taskID
	}
	return poller.Poll(ctx, func(ctx context.Context) (poller.Status[*types.SaveTaskStatus], error) {
		st, err := c.TaskStatus(ctx, taskID)
		if err != nil {
			return poller.Status[*types.SaveTaskStatus]{}, err
		}
		return SaveTaskPollStatus(st), nil
	}, opts)
}

// SaveTaskPollStatus maps a task status onto a poll outcome. An error
// message ends the task as failed even before it reports completion.
func SaveTaskPollStatus(st *types.SaveTaskStatus) poller.Status[*types.SaveTaskStatus] {
	out := poller.Status[*types.SaveTaskStatus]{
		Value:   st,
		Message: fmt.Sprintf("%d/%d files", st.CompletedFiles, st.TotalFiles),
	}
	switch {
	case st.Error != "":
		out.Outcome = poller.Failed
		out.Message = st.Error
	case st.Completed:
		out.Outcome = poller.Completed
	default:
		out.Outcome = poller.Pending
	}
	return out
}

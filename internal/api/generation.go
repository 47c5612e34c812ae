package api

import (
	"context"
	"net/http"

	"careerkit/internal/types"
)

// StartCustomResume submits a tailored resume generation job. The backend
// answers 202 and the job is then tracked with CustomResumeStatus.
func (c *Client) StartCustomResume(ctx context.Context, req types.CustomResumeRequest) error {
	return c.do(ctx, request{
		endpoint: endpointGeneration,
		method:   http.MethodPost,
		path:     c.aiPath("resume", c.session.UserID, "custom-resume"),
		body:     req,
		accept:   []int{http.StatusAccepted, http.StatusOK},
	})
}

// CustomResumeStatus reads the state of the user's generation job
func (c *Client) CustomResumeStatus(ctx context.Context) (*types.CustomResumeStatus, error) {
	var out types.CustomResumeStatus
	err := c.do(ctx, request{
		endpoint: endpointGeneration,
		method:   http.MethodGet,
		path:     c.aiPath("resume", c.session.UserID, "custom-resume-status"),
		out:      &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

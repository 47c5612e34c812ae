package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"careerkit/internal/config"
	"careerkit/internal/errors"
	"careerkit/internal/poller"
	"careerkit/internal/session"
	"careerkit/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, token string, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.APIConfig{BaseURL: srv.URL + "/", Timeout: 5 * time.Second, UserAgent: "careerkit-test"}
	return New(cfg, session.New("space-1", "user-1", "sid", token), nil, opts...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestRepositoryFiles(t *testing.T) {
	var gotPath, gotCookie, gotAgent string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAgent = r.UserAgent()
		if ck, err := r.Cookie("sid"); err == nil {
			gotCookie = ck.Value
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"files": []map[string]any{
				{"path": "src", "type": "tree", "size": 0},
				{"path": "src/main.go", "type": "blob", "size": 120, "sha": "abc"},
			},
		})
	}, "token-1")

	files, err := c.RepositoryFiles(context.Background(), "octo", "hello")

	require.NoError(t, err)
	assert.Equal(t, "/api/v1/resume/space-1/github/users/user-1/db/repositories/octo/hello", gotPath)
	assert.Equal(t, "token-1", gotCookie)
	assert.Equal(t, "careerkit-test", gotAgent)
	require.Len(t, files.Files, 2)
	assert.Equal(t, types.RepoFileBlob, files.Files[1].Type)
	assert.Equal(t, int64(120), files.Files[1].Size)
}

func TestGuestSendsNoCookie(t *testing.T) {
	var cookies int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		cookies = len(r.Cookies())
		writeJSON(w, http.StatusOK, []types.Resume{})
	}, "")

	_, err := c.Resumes().List(context.Background())

	require.NoError(t, err)
	assert.Zero(t, cookies)
}

func TestSaveFiles(t *testing.T) {
	var body map[string]any
	var method, path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		writeJSON(w, http.StatusOK, map[string]string{"taskId": "task-9"})
	}, "t")

	resp, err := c.SaveFiles(context.Background(), types.SaveFilesRequest{
		Repository: "octo/hello",
		FilePaths:  []string{"src/main.go"},
		Branch:     "main",
	})

	require.NoError(t, err)
	assert.Equal(t, "task-9", resp.TaskID)
	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "/api/v1/resume/space-1/github/users/user-1/save-files", path)
	assert.Equal(t, "octo/hello", body["repository"])
	assert.Equal(t, "main", body["branch"])
	assert.Equal(t, []any{"src/main.go"}, body["filePaths"])
}

func TestSaveFilesRequiresPaths(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { calls.Add(1) }, "t")

	_, err := c.SaveFiles(context.Background(), types.SaveFilesRequest{Repository: "octo/hello"})

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidRequest))
	assert.Zero(t, calls.Load())
}

func TestNotFoundIsReported(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such task", http.StatusNotFound)
	}, "t")

	_, err := c.TaskStatus(context.Background(), "missing")

	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.True(t, errors.HasCode(err, errors.ErrCodeHTTPStatus))
	assert.Contains(t, err.Error(), "no such task")
}

func TestStartCustomResumeAccepts202(t *testing.T) {
	var got types.CustomResumeRequest
	var path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}, "t")

	err := c.StartCustomResume(context.Background(), types.CustomResumeRequest{
		JobDescriptionURL: "https://jobs.example.com/1",
		PortfolioIDs:      []string{"p-1"},
	})

	require.NoError(t, err)
	assert.Equal(t, "/api/v1/ai/space-1/resume/user-1/custom-resume", path)
	assert.Equal(t, "https://jobs.example.com/1", got.JobDescriptionURL)
	assert.Equal(t, []string{"p-1"}, got.PortfolioIDs)
}

func TestCustomResumeStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/ai/space-1/resume/user-1/custom-resume-status", r.URL.Path)
		_, _ = io.WriteString(w, `{"status":"processing","progress":{"current_step":"matching","message":"Matching skills"}}`)
	}, "t")

	st, err := c.CustomResumeStatus(context.Background())

	require.NoError(t, err)
	assert.Equal(t, types.StatusProcessing, st.Status)
	assert.Equal(t, "matching", st.Progress.CurrentStep)
	assert.Nil(t, st.Result)
}

func TestWaitForTaskPollsToCompletion(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		writeJSON(w, http.StatusOK, types.SaveTaskStatus{
			Completed:      n == 3,
			TotalFiles:     2,
			CompletedFiles: int(n) - 1,
			SavedFiles:     []string{"a.go", "b.go"}[:n-1],
		})
	}, "t")

	st, err := c.WaitForTask(context.Background(), "task-1", poller.Options[*types.SaveTaskStatus]{Interval: time.Millisecond})

	require.NoError(t, err)
	assert.True(t, st.Completed)
	assert.Equal(t, []string{"a.go", "b.go"}, st.SavedFiles)
	assert.Equal(t, int32(3), calls.Load())
}

func TestWaitForTaskStopsOnNotFound(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}, "t")

	_, err := c.WaitForTask(context.Background(), "gone", poller.Options[*types.SaveTaskStatus]{Interval: time.Millisecond})

	require.Error(t, err)
	assert.ErrorIs(t, err, poller.ErrNotFound)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDocumentsCRUD(t *testing.T) {
	type call struct{ method, path string }
	var mu sync.Mutex
	var calls []call

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, call{r.Method, r.URL.Path})
		mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			if r.URL.Path == "/api/v1/resume/space-1/users/user-1/job-descriptions" {
				writeJSON(w, http.StatusOK, []types.JobDescription{{ID: "j-1", Title: "Go Engineer"}})
				return
			}
			writeJSON(w, http.StatusOK, types.JobDescription{ID: "j-1", Title: "Go Engineer"})
		case http.MethodPost, http.MethodPut:
			var jd types.JobDescription
			_ = json.NewDecoder(r.Body).Decode(&jd)
			jd.ID = "j-2"
			writeJSON(w, http.StatusOK, jd)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	}, "t")

	ctx := context.Background()
	docs := c.JobDescriptions()

	list, err := docs.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	got, err := docs.Get(ctx, "j-1")
	require.NoError(t, err)
	assert.Equal(t, "Go Engineer", got.Title)

	created, err := docs.Create(ctx, &types.JobDescription{Title: "SRE"})
	require.NoError(t, err)
	assert.Equal(t, "j-2", created.ID)

	_, err = docs.Update(ctx, "j-2", &types.JobDescription{Title: "Senior SRE"})
	require.NoError(t, err)

	require.NoError(t, docs.Delete(ctx, "j-2"))

	_, err = docs.Get(ctx, "")
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidRequest))

	base := "/api/v1/resume/space-1/users/user-1/job-descriptions"
	assert.Equal(t, []call{
		{http.MethodGet, base},
		{http.MethodGet, base + "/j-1"},
		{http.MethodPost, base},
		{http.MethodPut, base + "/j-2"},
		{http.MethodDelete, base + "/j-2"},
	}, calls)
}

func TestCircuitBreakerTripsOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := &config.APIConfig{
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
		CircuitBreaker: config.CircuitBreakerConfig{
			Enabled:          true,
			MaxRequests:      1,
			Timeout:          time.Minute,
			MinRequests:      2,
			FailureThreshold: 0.5,
		},
	}
	c := New(cfg, session.New("s", "u", "", ""), nil)

	for range 2 {
		_, err := c.CustomResumeStatus(context.Background())
		require.Error(t, err)
		assert.Equal(t, http.StatusBadGateway, StatusCode(err))
	}

	_, err := c.CustomResumeStatus(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeCircuitOpen))
	assert.Equal(t, int32(2), calls.Load())
	assert.False(t, c.breaker.IsHealthy())
}

func TestCircuitBreakerIgnoresClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := &config.APIConfig{
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
		CircuitBreaker: config.CircuitBreakerConfig{
			Enabled: true, MaxRequests: 1, Timeout: time.Minute, MinRequests: 2, FailureThreshold: 0.5,
		},
	}
	c := New(cfg, session.New("s", "u", "", ""), nil)

	for range 4 {
		_, err := c.TaskStatus(context.Background(), "x")
		assert.True(t, IsNotFound(err))
	}
	assert.True(t, c.breaker.IsHealthy())
}

type fakeRecorder struct {
	mu       sync.Mutex
	requests []int
}

func (f *fakeRecorder) RecordAPIRequest(_ context.Context, _, _ string, status int, _ time.Duration, _ error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, status)
}

func (f *fakeRecorder) RecordRateLimitWait(context.Context, string, time.Duration) {}

func TestRecorderSeesEveryRequest(t *testing.T) {
	rec := &fakeRecorder{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		writeJSON(w, http.StatusOK, []types.Portfolio{})
	}, "t", WithRecorder(rec))

	_, _ = c.Portfolios().List(context.Background())
	_ = c.Portfolios().Delete(context.Background(), "p-1")

	assert.Equal(t, []int{http.StatusOK, http.StatusForbidden}, rec.requests)
}

func TestSaveTaskPollStatus(t *testing.T) {
	tests := []struct {
		name    string
		status  types.SaveTaskStatus
		outcome poller.Outcome
	}{
		{"in progress", types.SaveTaskStatus{TotalFiles: 3, CompletedFiles: 1}, poller.Pending},
		{"completed", types.SaveTaskStatus{Completed: true, TotalFiles: 3, CompletedFiles: 3}, poller.Completed},
		{"error before completion", types.SaveTaskStatus{Error: "clone failed"}, poller.Failed},
		{"completed with error", types.SaveTaskStatus{Completed: true, Error: "disk full"}, poller.Failed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SaveTaskPollStatus(&tt.status)
			if got.Outcome != tt.outcome {
				t.Errorf("Expected %v, got %v", tt.outcome, got.Outcome)
			}
		})
	}
}

func TestSplitRepository(t *testing.T) {
	owner, repo, err := SplitRepository("octo/hello")
	require.NoError(t, err)
	assert.Equal(t, "octo", owner)
	assert.Equal(t, "hello", repo)

	for _, bad := range []string{"", "octo", "octo/", "/hello", "a/b/c"} {
		_, _, err := SplitRepository(bad)
		assert.Error(t, err, bad)
	}
}

func TestBuildPathEscapesSegments(t *testing.T) {
	assert.Equal(t, "/api/v1/resume/a%20b/x%2Fy", buildPath("api", "v1", "resume", "a b", "x/y"))
}

func TestClientIsNotFoundAndStats(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no generation in progress", http.StatusNotFound)
	}, "tok")

	_, err := c.CustomResumeStatus(context.Background())
	require.Error(t, err)
	assert.True(t, c.IsNotFound(err))
	assert.False(t, c.IsNotFound(assert.AnError))

	stats := c.Stats()
	assert.Contains(t, stats, "circuit_breaker")
	assert.Contains(t, stats, "rate_limiter")
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package devserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-summarizer/internal/api"
	"github.com/pdiddy/research-summarizer/pkg/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newClient(t *testing.T, cfg types.DevserverConfig) *api.Client {
	t.Helper()
	ts := httptest.NewServer(New(cfg).Handler())
	t.Cleanup(ts.Close)
	c, err := api.New(types.APIConfig{BaseURL: ts.URL + "/api"}, api.WithHTTPClient(ts.Client()))
	require.NoError(t, err)
	return c
}

func TestJobCompletesAfterConfiguredReads(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, types.DevserverConfig{PollsUntilComplete: 3})

	job, err := c.Submit(ctx, types.NewSearchRequest("quantum computing"))
	require.NoError(t, err)
	assert.Equal(t, types.StatusProcessing, job.Status)
	assert.False(t, job.Timestamp.IsZero())

	for i := 0; i < 2; i++ {
		got, err := c.GetQuery(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, types.StatusProcessing, got.Status)
	}

	summaries, err := c.GetSummaries(ctx, job.ID)
	require.NoError(t, err)
	assert.Empty(t, summaries, "no summaries before completion")

	got, err := c.GetQuery(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, got.Status)
	assert.Equal(t, 3, got.NumPapers)

	summaries, err = c.GetSummaries(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	assert.Equal(t, job.ID, summaries[0].QueryID)
	assert.Contains(t, summaries[0].Title, "Quantum Computing")
	assert.True(t, strings.HasPrefix(summaries[0].Content, "# "))
}

func TestFailingQueryEndsFailed(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, types.DevserverConfig{PollsUntilComplete: 1})

	job, err := c.Submit(ctx, types.NewSearchRequest("please fail"))
	require.NoError(t, err)

	got, err := c.GetQuery(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, got.Status)

	summaries, err := c.GetSummaries(ctx, job.ID)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestAnalysisLifecycle(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, types.DevserverConfig{PollsUntilComplete: 1, PollsUntilAnalyzed: 2})

	job, err := c.Submit(ctx, types.NewSearchRequest("graph neural networks"))
	require.NoError(t, err)
	_, err = c.GetQuery(ctx, job.ID)
	require.NoError(t, err)

	a, err := c.GetAnalysis(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.AnalysisPending, a.Status)

	require.NoError(t, c.StartAnalysis(ctx, job.ID))
	got, err := c.GetQuery(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusAnalyzing, got.Status)

	a, err = c.GetAnalysis(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.AnalysisPending, a.Status)

	a, err = c.GetAnalysis(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.AnalysisCompleted, a.Status)
	assert.Contains(t, a.Content, "| Paper |")

	got, err = c.GetQuery(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, got.Status)
}

func TestNotFoundDetail(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, types.DevserverConfig{})

	_, err := c.GetQuery(ctx, "missing")
	require.ErrorIs(t, err, api.ErrNotFound)
	assert.Equal(t, "Query not found", api.Detail(err, ""))

	assert.ErrorIs(t, c.StartAnalysis(ctx, "missing"), api.ErrNotFound)
	assert.ErrorIs(t, c.DeleteQuery(ctx, "missing"), api.ErrNotFound)
	_, err = c.GetAnalysis(ctx, "missing")
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestListNewestFirstAndDelete(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, types.DevserverConfig{})

	first, err := c.Submit(ctx, types.NewSearchRequest("first"))
	require.NoError(t, err)
	second, err := c.Submit(ctx, types.NewSearchRequest("second"))
	require.NoError(t, err)

	jobs, err := c.ListQueries(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, second.ID, jobs[0].ID)
	assert.Equal(t, first.ID, jobs[1].ID)

	require.NoError(t, c.DeleteQuery(ctx, first.ID))
	jobs, err = c.ListQueries(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, second.ID, jobs[0].ID)
}

func TestSearchValidation(t *testing.T) {
	s := New(types.DevserverConfig{})

	tests := []struct {
		name string
		body string
		want string
	}{
		{"blank query", `{"query":"   "}`, "please enter a search query"},
		{"too many papers", `{"query":"x","num_results":50}`, "between 1 and 20"},
		{"bad provider", `{"query":"x","provider":"llama"}`, "provider must be one of"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			s.Handler().ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
}

func TestSearchAppliesDefaults(t *testing.T) {
	s := New(types.DevserverConfig{})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{"query":"llms"}`))
	s.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"num_papers":3`)
	assert.Contains(t, w.Body.String(), `"provider":"deepseek"`)
	assert.Contains(t, w.Body.String(), `"status":"processing"`)
}

func TestAnalyzeRequiresSessionID(t *testing.T) {
	s := New(types.DevserverConfig{})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{}`))
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "session_id")
}

func TestCORSPreflight(t *testing.T) {
	s := New(types.DevserverConfig{})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/queries", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	s.Handler().ServeHTTP(w, req)

	assert.Less(t, w.Code, 300)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRunStopsOnCancel(t *testing.T) {
	s := New(types.DevserverConfig{Addr: "127.0.0.1:0"})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()
	assert.NoError(t, <-done)
}

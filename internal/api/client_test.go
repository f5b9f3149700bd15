// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-summarizer/internal/httputil"
	"github.com/pdiddy/research-summarizer/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	c, err := New(types.APIConfig{BaseURL: ts.URL + "/api"}, WithHTTPClient(ts.Client()))
	require.NoError(t, err)
	return c
}

// --- Submit ---

func TestSubmitSendsRequestBody(t *testing.T) {
	var got map[string]any
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/search", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"q-1","query":"quantum computing","timestamp":"2025-03-01T12:34:56.123456","status":"processing","num_papers":3,"provider":"deepseek"}`)
	})

	req := types.NewSearchRequest("  quantum computing ")
	job, err := c.Submit(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "q-1", job.ID)
	assert.Equal(t, types.StatusProcessing, job.Status)
	assert.Equal(t, 2025, job.Timestamp.Year())

	assert.Equal(t, "quantum computing", got["query"])
	assert.Equal(t, float64(3), got["num_results"])
	assert.Equal(t, "deepseek", got["provider"])
	assert.Equal(t, true, got["full_text"])
	assert.Equal(t, false, got["sort_by_date"])
}

func TestSubmitRejectsInvalidBeforeSending(t *testing.T) {
	var calls int32
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	tests := []struct {
		name string
		req  types.SearchRequest
		want string
	}{
		{"empty query", types.NewSearchRequest(""), "please enter a search query"},
		{"blank query", types.NewSearchRequest("   "), "please enter a search query"},
		{"too many papers", types.SearchRequest{Query: "x", NumResults: 21, Provider: "openai"}, "between 1 and 20"},
		{"zero papers", types.SearchRequest{Query: "x", NumResults: 0, Provider: "openai"}, "between 1 and 20"},
		{"bad provider", types.SearchRequest{Query: "x", NumResults: 3, Provider: "llama"}, "provider must be one of"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Submit(context.Background(), tt.req)
			require.ErrorIs(t, err, ErrValidation)
			assert.Contains(t, Detail(err, ""), tt.want)
		})
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

// --- Reads ---

func TestGetQueryUnknownStatus(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/queries/abc", r.URL.Path)
		fmt.Fprint(w, `{"id":"abc","query":"q","timestamp":"2025-01-01T00:00:00Z","status":"queued","num_papers":0,"provider":"openai"}`)
	})

	job, err := c.GetQuery(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, types.StatusUnknown, job.Status)
	assert.Equal(t, "queued", job.DisplayStatus())
	assert.False(t, job.Status.IsTerminal())
}

func TestGetQueryEscapesID(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/queries/a%2Fb", r.URL.EscapedPath())
		fmt.Fprint(w, `{"id":"a/b","status":"completed"}`)
	})

	job, err := c.GetQuery(context.Background(), "a/b")
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, job.Status)
}

func TestGetQueryEmptyID(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	_, err := c.GetQuery(context.Background(), " ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNotFoundCarriesDetail(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"detail":"Query not found"}`)
	})

	_, err := c.GetQuery(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Query not found", Detail(err, "generic"))
}

func TestServerErrorWithoutDetail(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `Internal Server Error`)
	})

	_, err := c.ListQueries(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Failed to load data", Detail(err, "Failed to load data"))
	assert.Contains(t, err.Error(), "HTTP 500")
}

func TestValidationDetailList(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"detail":[{"loc":["body","session_id"],"msg":"field required","type":"value_error.missing"}]}`)
	})

	err := c.StartAnalysis(context.Background(), "abc")
	require.Error(t, err)
	assert.Equal(t, "session_id: field required", Detail(err, ""))
}

func TestGetSummariesEmptyIsNotNil(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/queries/abc/summaries", r.URL.Path)
		fmt.Fprint(w, `[]`)
	})

	summaries, err := c.GetSummaries(context.Background(), "abc")
	require.NoError(t, err)
	assert.NotNil(t, summaries)
	assert.Empty(t, summaries)
}

func TestGetAnalysisStatuses(t *testing.T) {
	tests := []struct {
		body        string
		wantStatus  types.AnalysisStatus
		wantContent string
	}{
		{`{"status":"pending"}`, types.AnalysisPending, ""},
		{`{"status":"completed","content":"# Compare"}`, types.AnalysisCompleted, "# Compare"},
		{`{"status":"analyzing","content":null}`, types.AnalysisAnalyzing, ""},
		{`{"status":"weird"}`, types.AnalysisPending, ""},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/analysis/abc", r.URL.Path)
				fmt.Fprint(w, tt.body)
			})
			a, err := c.GetAnalysis(context.Background(), "abc")
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, a.Status)
			assert.Equal(t, tt.wantContent, a.Content)
		})
	}
}

// --- Writes ---

func TestStartAnalysisBody(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/analyze", r.URL.Path)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "abc", body["session_id"])
		fmt.Fprint(w, `{"message":"Analysis started","session_id":"abc"}`)
	})

	require.NoError(t, c.StartAnalysis(context.Background(), "abc"))
}

func TestDeleteQuery(t *testing.T) {
	var method, path string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.DeleteQuery(context.Background(), "abc"))
	assert.Equal(t, http.MethodDelete, method)
	assert.Equal(t, "/api/queries/abc", path)
}

// --- Transport ---

func TestBearerTokenHeader(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		fmt.Fprint(w, `[]`)
	}))
	defer ts.Close()

	c, err := New(types.APIConfig{BaseURL: ts.URL, Token: "s3cret"}, WithHTTPClient(ts.Client()))
	require.NoError(t, err)
	_, err = c.ListQueries(context.Background())
	require.NoError(t, err)
}

func TestNetworkErrorIsAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	c, err := New(types.APIConfig{BaseURL: url})
	require.NoError(t, err)

	_, err = c.GetQuery(context.Background(), "abc")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 0, apiErr.StatusCode)
	assert.Error(t, apiErr.Err)
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	_, err := New(types.APIConfig{BaseURL: "not a url"})
	assert.Error(t, err)

	c, err := New(types.APIConfig{})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
}

func TestRateLimiterWaitsForContext(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer ts.Close()

	c, err := New(types.APIConfig{BaseURL: ts.URL, RequestsPerSecond: 0.01}, WithHTTPClient(ts.Client()))
	require.NoError(t, err)

	_, err = c.ListQueries(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.ListQueries(ctx)
	assert.Error(t, err)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package api is the client for the research summarizer REST API: search
// submission, job status, summaries, and comparative analysis.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/phuslu/log"
	"golang.org/x/time/rate"

	"github.com/pdiddy/research-summarizer/internal/httputil"
	"github.com/pdiddy/research-summarizer/internal/logging"
	"github.com/pdiddy/research-summarizer/pkg/types"
)

const (
	DefaultBaseURL   = "http://localhost:8000/api"
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "research-summarizer/0.1"

	maxErrorBody = 64 << 10
)

// Client calls the API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	http       *http.Client
	userAgent  string
	token      string
	maxRetries int
	limiter    *rate.Limiter
	log        *log.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client (tests pass ts.Client()).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New builds a client from cfg, filling defaults for unset fields.
func New(cfg types.APIConfig, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}

	c := &Client{
		baseURL:    base,
		http:       &http.Client{Timeout: timeout},
		userAgent:  ua,
		token:      cfg.Token,
		maxRetries: cfg.MaxRetries,
		log:        logging.Discard(),
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Submit validates req and creates a new Query Job.
func (c *Client) Submit(ctx context.Context, req types.SearchRequest) (types.QueryJob, error) {
	req.Query = strings.TrimSpace(req.Query)
	if err := ValidateSearch(req); err != nil {
		return types.QueryJob{}, err
	}
	var job types.QueryJob
	if err := c.do(ctx, http.MethodPost, "/search", req, &job); err != nil {
		return types.QueryJob{}, err
	}
	return job, nil
}

// GetQuery returns the current state of a job.
func (c *Client) GetQuery(ctx context.Context, id string) (types.QueryJob, error) {
	if err := validateID(id); err != nil {
		return types.QueryJob{}, err
	}
	var job types.QueryJob
	if err := c.do(ctx, http.MethodGet, "/queries/"+url.PathEscape(id), nil, &job); err != nil {
		return types.QueryJob{}, err
	}
	return job, nil
}

// ListQueries returns all known jobs in server order (newest first).
func (c *Client) ListQueries(ctx context.Context) ([]types.QueryJob, error) {
	var jobs []types.QueryJob
	if err := c.do(ctx, http.MethodGet, "/queries", nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// DeleteQuery removes a job and its artifacts.
func (c *Client) DeleteQuery(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, "/queries/"+url.PathEscape(id), nil, nil)
}

// GetSummaries returns the summaries of a completed job.
func (c *Client) GetSummaries(ctx context.Context, id string) ([]types.Summary, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	var summaries []types.Summary
	if err := c.do(ctx, http.MethodGet, "/queries/"+url.PathEscape(id)+"/summaries", nil, &summaries); err != nil {
		return nil, err
	}
	if summaries == nil {
		summaries = []types.Summary{}
	}
	return summaries, nil
}

type analyzeRequest struct {
	SessionID string `json:"session_id"`
}

// StartAnalysis asks the server to generate the comparative analysis. The
// response carries no analysis content; callers observe progress through
// GetQuery and GetAnalysis.
func (c *Client) StartAnalysis(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/analyze", analyzeRequest{SessionID: id}, nil)
}

// GetAnalysis returns the analysis sub-status and, once completed, content.
func (c *Client) GetAnalysis(ctx context.Context, id string) (types.Analysis, error) {
	if err := validateID(id); err != nil {
		return types.Analysis{}, err
	}
	var a types.Analysis
	if err := c.do(ctx, http.MethodGet, "/analysis/"+url.PathEscape(id), nil, &a); err != nil {
		return types.Analysis{}, err
	}
	return a, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	op := method + " " + path

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &APIError{Op: op, Err: err}
		}
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := httputil.DoWithRetry(ctx, c.http, req, c.maxRetries)
	if err != nil {
		c.log.Warn().Str("op", op).Err(err).Msg("api request failed")
		return &APIError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.log.Debug().Str("op", op).Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).Msg("api request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{Op: op, StatusCode: resp.StatusCode, Detail: parseDetail(data)}
		c.log.Warn().Str("op", op).Int("status", resp.StatusCode).
			Str("detail", apiErr.Detail).Msg("api error response")
		return apiErr
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("parsing response: %w", err)}
	}
	return nil
}

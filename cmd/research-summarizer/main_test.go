// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-summarizer/internal/api"
	"github.com/pdiddy/research-summarizer/internal/archive"
	"github.com/pdiddy/research-summarizer/internal/devserver"
	"github.com/pdiddy/research-summarizer/pkg/types"
)

// --- test helpers ---

// setupServer points the CLI at a fresh devserver and archive.
func setupServer(t *testing.T) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	srv := devserver.New(types.DevserverConfig{PollsUntilComplete: 1, PollsUntilAnalyzed: 1})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	viper.Set("api.base_url", ts.URL+"/api")
	viper.Set("archive.dir", t.TempDir())
	viper.Set("log.level", "error")
	t.Cleanup(func() {
		viper.Set("api.base_url", api.DefaultBaseURL)
		viper.Set("archive.dir", defaultArchiveDir())
	})
}

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func submit(t *testing.T, query string) types.QueryJob {
	t.Helper()
	out, err := run(t, "", "search", query, "--num-results", "2", "--json")
	require.NoError(t, err, out)
	var job types.QueryJob
	require.NoError(t, json.Unmarshal([]byte(out), &job), out)
	require.NotEmpty(t, job.ID)
	return job
}

// --- commands ---

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "research-summarizer dev\n", out)
}

func TestSearchStatusSummaries(t *testing.T) {
	setupServer(t)
	job := submit(t, "graph neural networks")
	assert.Equal(t, types.StatusProcessing, job.Status)
	assert.Equal(t, 2, job.NumPapers)

	out, err := run(t, "", "status", job.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Status:    completed")
	assert.Contains(t, out, "Query:     graph neural networks")

	out, err = run(t, "", "summaries", job.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "1. Graph Neural Networks: Study 1")
	assert.Contains(t, out, "2. Graph Neural Networks: Study 2")

	out, err = run(t, "", "summaries", job.ID, "--json")
	require.NoError(t, err)
	var summaries []types.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &summaries))
	assert.Len(t, summaries, 2)
}

func TestSearchRejectsInvalidRequest(t *testing.T) {
	setupServer(t)
	_, err := run(t, "", "search", "x", "--num-results", "50")
	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrValidation), "got %v", err)

	_, err = run(t, "", "search", "x", "--provider", "mystery")
	require.Error(t, err)
}

func TestListNewestFirst(t *testing.T) {
	setupServer(t)
	first := submit(t, "first topic")
	second := submit(t, "second topic")

	out, err := run(t, "", "list", "--json")
	require.NoError(t, err)
	var jobs []types.QueryJob
	require.NoError(t, json.Unmarshal([]byte(out), &jobs))
	require.Len(t, jobs, 2)
	assert.Equal(t, second.ID, jobs[0].ID)
	assert.Equal(t, first.ID, jobs[1].ID)

	out, err = run(t, "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "2 queries")
}

func TestAnalyzeFlow(t *testing.T) {
	setupServer(t)
	job := submit(t, "protein folding")

	// analyze reads the status first, which settles the job.
	_, err := run(t, "", "analyze", job.ID)
	require.NoError(t, err)

	out, err := run(t, "", "analysis", job.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Comparative Analysis")

	_, err = run(t, "", "analyze", job.ID)
	require.Error(t, err, "analysis already written")
}

func TestAnalyzeRefusedForFailedSearch(t *testing.T) {
	setupServer(t)
	job := submit(t, "this will fail")

	_, err := run(t, "", "analyze", job.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed")
}

func TestStatusNotFound(t *testing.T) {
	setupServer(t)
	_, err := run(t, "", "status", "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrNotFound))
	assert.Contains(t, err.Error(), "Query not found")
}

func TestDeleteConfirmation(t *testing.T) {
	setupServer(t)
	job := submit(t, "to be deleted")

	out, err := run(t, "n\n", "delete", job.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "This action cannot be undone.")
	assert.Contains(t, out, "Delete cancelled.")

	out, err = run(t, "", "delete", job.ID, "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted "+job.ID)

	_, err = run(t, "", "status", job.ID)
	assert.True(t, errors.Is(err, api.ErrNotFound))
}

func TestArchiveLifecycle(t *testing.T) {
	setupServer(t)
	job := submit(t, "quantum error correction")
	_, err := run(t, "", "status", job.ID)
	require.NoError(t, err)

	out, err := run(t, "", "archive", "save", job.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Archived "+job.ID+" (2 summaries)")

	out, err = run(t, "", "archive", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "quantum error correction")

	out, err = run(t, "", "archive", "search", "findings", "--json")
	require.NoError(t, err)
	var hits []archive.Hit
	require.NoError(t, json.Unmarshal([]byte(out), &hits))
	assert.NotEmpty(t, hits)

	out, err = run(t, "", "archive", "show", job.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "# quantum error correction")

	out, err = run(t, "", "archive", "delete", job.ID)
	require.NoError(t, err)
	_, err = run(t, "", "archive", "show", job.ID)
	assert.True(t, errors.Is(err, archive.ErrNotFound))
}

func TestArchiveSaveRequiresCompletedSearch(t *testing.T) {
	setupServer(t)
	job := submit(t, "unfinished")

	// fetchReport's status read settles both jobs.
	failing := submit(t, "please fail")
	_, err := run(t, "", "archive", "save", failing.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, archive.ErrNotCompleted))

	_, err = run(t, "", "archive", "save", job.ID)
	require.NoError(t, err)
}

func TestExportFormats(t *testing.T) {
	setupServer(t)
	job := submit(t, "federated learning")
	dir := t.TempDir()

	htmlPath := filepath.Join(dir, "report.html")
	_, err := run(t, "", "export", job.ID, "--output", htmlPath)
	require.NoError(t, err)
	data, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<h1>federated learning</h1>")

	out, err := run(t, "", "export", job.ID, "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "query: federated learning")

	_, err = run(t, "", "export", job.ID, "--format", "pdf")
	require.Error(t, err)
}

func TestExportFromArchive(t *testing.T) {
	setupServer(t)
	job := submit(t, "sparse attention")
	_, err := run(t, "", "archive", "save", job.ID)
	require.NoError(t, err)

	out, err := run(t, "", "export", job.ID, "--from-archive", "--format", "json")
	require.NoError(t, err)
	var report archive.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, job.ID, report.Job.ID)
	assert.Len(t, report.Summaries, 2)
}

func TestExportFormatFromExtension(t *testing.T) {
	tests := []struct {
		name, format, output string
		want                 archive.Format
	}{
		{"explicit wins", "json", "out.md", archive.FormatJSON},
		{"extension", "", "out.yml", archive.FormatYAML},
		{"unknown extension", "", "out.txt", archive.FormatMarkdown},
		{"stdout", "", "", archive.FormatMarkdown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := exportFormat(tt.format, tt.output)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigFromEnvironment(t *testing.T) {
	t.Setenv("RESEARCH_SUMMARIZER_POLLER_INTERVAL", "3s")
	t.Setenv("RESEARCH_SUMMARIZER_API_MAX_RETRIES", "7")
	initConfig()

	c, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "3s", c.Poller.Interval.String())
	assert.Equal(t, 7, c.API.MaxRetries)
	assert.Equal(t, api.DefaultUserAgent, c.API.UserAgent)
}

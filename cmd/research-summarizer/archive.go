// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-summarizer/internal/api"
	"github.com/pdiddy/research-summarizer/internal/archive"
	"github.com/pdiddy/research-summarizer/pkg/types"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Keep completed searches in a local archive (save, list, search, show, delete)",
	Long: `Archive stores completed searches, their summaries and analysis, in a
local SQLite database with full-text search, so reports stay readable after
they are deleted from the server.`,
}

// --- save subcommand ---

var archiveSaveCmd = &cobra.Command{
	Use:   "save <id>",
	Short: "Fetch a completed search and store it in the archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		report, err := fetchReport(cmd.Context(), client, args[0])
		if err != nil {
			return err
		}

		store, err := openArchive()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Save(cmd.Context(), report); err != nil {
			return err
		}
		logger.Info().Str("query_id", report.Job.ID).Int("summaries", len(report.Summaries)).Msg("report archived")
		fmt.Fprintf(cmd.OutOrStdout(), "Archived %s (%d summaries)\n", report.Job.ID, len(report.Summaries))
		return nil
	},
}

// --- list subcommand ---

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived searches, most recently saved first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openArchive()
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			if entries == nil {
				entries = []archive.Entry{}
			}
			return writeJSON(w, entries)
		}
		if len(entries) == 0 {
			fmt.Fprintln(w, "Archive is empty.")
			return nil
		}

		fmt.Fprintf(w, "%-36s  %-9s  %-9s  %-8s  %-16s  %s\n",
			"ID", "Summaries", "Provider", "Analysis", "Saved", "Query")
		fmt.Fprintln(w, strings.Repeat("-", 120))
		for _, e := range entries {
			analysis := "no"
			if e.HasAnalysis {
				analysis = "yes"
			}
			fmt.Fprintf(w, "%-36s  %-9d  %-9s  %-8s  %-16s  %s\n",
				truncate(e.ID, 36), e.Summaries, truncate(e.Provider, 9), analysis,
				e.SavedAt.Local().Format("2006-01-02 15:04"), truncate(e.Query, 40))
		}
		fmt.Fprintf(w, "\n%d reports\n", len(entries))
		return nil
	},
}

// --- search subcommand ---

var archiveSearchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Full-text search over archived summaries",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := openArchive()
		if err != nil {
			return err
		}
		defer store.Close()

		hits, err := store.Search(cmd.Context(), strings.Join(args, " "), limit)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			if hits == nil {
				hits = []archive.Hit{}
			}
			return writeJSON(w, hits)
		}
		if len(hits) == 0 {
			fmt.Fprintln(w, "No results found.")
			return nil
		}
		for i, h := range hits {
			fmt.Fprintf(w, "%d. %s  (%s, report %s)\n", i+1, h.Title, h.Query, h.ReportID)
			fmt.Fprintf(w, "   %s\n", strings.Join(strings.Fields(h.Snippet), " "))
		}
		fmt.Fprintf(w, "\n%d results\n", len(hits))
		return nil
	},
}

// --- show subcommand ---

var archiveShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print an archived report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("format")
		format, err := archive.ParseFormat(name)
		if err != nil {
			return err
		}

		store, err := openArchive()
		if err != nil {
			return err
		}
		defer store.Close()

		report, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return archive.WriteReport(cmd.OutOrStdout(), report, format)
	},
}

// --- delete subcommand ---

var archiveDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a report from the archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openArchive()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from the archive\n", args[0])
		return nil
	},
}

// --- export ---

var exportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Write a report of a completed search",
	Long: `Export writes a search, its summaries and its comparative analysis as
YAML, JSON, Markdown, or HTML. The report is fetched from the API unless
--from-archive is set. Without --format the format follows the --output file
extension, falling back to Markdown.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")
	fromArchive, _ := cmd.Flags().GetBool("from-archive")

	format, err := exportFormat(name, output)
	if err != nil {
		return err
	}

	var report archive.Report
	if fromArchive {
		store, err := openArchive()
		if err != nil {
			return err
		}
		defer store.Close()
		if report, err = store.Get(cmd.Context(), args[0]); err != nil {
			return err
		}
	} else {
		client, err := newClient()
		if err != nil {
			return err
		}
		if report, err = fetchReport(cmd.Context(), client, args[0]); err != nil {
			return err
		}
	}

	if output == "" || output == "-" {
		return archive.WriteReport(cmd.OutOrStdout(), report, format)
	}
	if err := writeReportFile(output, report, format); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Exported %s to %s\n", report.Job.ID, output)
	return nil
}

func exportFormat(name, output string) (archive.Format, error) {
	if name != "" {
		return archive.ParseFormat(name)
	}
	if ext := filepath.Ext(output); ext != "" {
		if f, err := archive.ParseFormat(ext); err == nil {
			return f, nil
		}
	}
	return archive.FormatMarkdown, nil
}

func writeReportFile(path string, report archive.Report, format archive.Format) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := archive.WriteReport(f, report, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// reportSource is the part of the API a report is assembled from.
type reportSource interface {
	GetQuery(ctx context.Context, id string) (types.QueryJob, error)
	GetSummaries(ctx context.Context, id string) ([]types.Summary, error)
	GetAnalysis(ctx context.Context, id string) (types.Analysis, error)
}

// fetchReport collects a completed job and its artifacts from the API.
func fetchReport(ctx context.Context, src reportSource, id string) (archive.Report, error) {
	job, err := src.GetQuery(ctx, id)
	if err != nil {
		return archive.Report{}, fmt.Errorf("fetching query: %w", err)
	}
	if job.Status != types.StatusCompleted {
		return archive.Report{}, fmt.Errorf("query %s is %s: %w", job.ID, job.DisplayStatus(), archive.ErrNotCompleted)
	}
	summaries, err := src.GetSummaries(ctx, id)
	if err != nil {
		return archive.Report{}, fmt.Errorf("fetching summaries: %w", err)
	}
	analysis, err := src.GetAnalysis(ctx, id)
	if err != nil && !errors.Is(err, api.ErrNotFound) {
		return archive.Report{}, fmt.Errorf("fetching analysis: %w", err)
	}
	if err != nil {
		analysis = types.Analysis{Status: types.AnalysisPending}
	}
	return archive.Report{Job: job, Summaries: summaries, Analysis: analysis}, nil
}

func init() {
	archiveListCmd.Flags().Bool("json", false, "output entries as JSON")
	archiveSearchCmd.Flags().Int("limit", 0, "maximum results (0 = use archive.max_results)")
	archiveSearchCmd.Flags().Bool("json", false, "output results as JSON")
	archiveShowCmd.Flags().String("format", "markdown", "output format: yaml, json, markdown, html")

	exportCmd.Flags().String("format", "", "export format: yaml, json, markdown, html")
	exportCmd.Flags().StringP("output", "o", "", "write to this file instead of stdout")
	exportCmd.Flags().Bool("from-archive", false, "read the report from the local archive")

	archiveCmd.AddCommand(archiveSaveCmd, archiveListCmd, archiveSearchCmd, archiveShowCmd, archiveDeleteCmd)
	rootCmd.AddCommand(archiveCmd, exportCmd)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-summarizer/internal/poller"
	"github.com/pdiddy/research-summarizer/internal/tui"
	"github.com/pdiddy/research-summarizer/pkg/types"
)

// --- search ---

var searchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Submit a research paper search",
	Long: `Search submits a query to the API. Papers are retrieved and summarized
in the background; use status, watch, or --watch to follow the job.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	req := types.NewSearchRequest(strings.Join(args, " "))
	req.NumResults, _ = cmd.Flags().GetInt("num-results")
	req.Provider, _ = cmd.Flags().GetString("provider")
	req.SortByDate, _ = cmd.Flags().GetBool("sort-by-date")
	req.FullText, _ = cmd.Flags().GetBool("full-text")

	client, err := newClient()
	if err != nil {
		return err
	}
	job, err := client.Submit(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("submitting search: %w", err)
	}
	logger.Info().Str("query_id", job.ID).Str("query", job.Query).Msg("search submitted")

	if watch, _ := cmd.Flags().GetBool("watch"); watch {
		return runTUI(cmd, tui.Options{OpenQuery: job.ID})
	}
	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		return writeJSON(cmd.OutOrStdout(), job)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Submitted query %s (%s)\n", job.ID, job.DisplayStatus())
	return nil
}

// --- list ---

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List submitted searches, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		jobs, err := client.ListQueries(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing queries: %w", err)
		}
		sort.SliceStable(jobs, func(i, j int) bool {
			return jobs[i].Timestamp.After(jobs[j].Timestamp.Time)
		})

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return writeJSON(cmd.OutOrStdout(), jobs)
		}
		if len(jobs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No queries found.")
			return nil
		}
		printJobTable(cmd.OutOrStdout(), jobs)
		return nil
	},
}

// --- status ---

var statusCmd = &cobra.Command{
	Use:   "status <id>",
	Short: "Fetch the current status of a search",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		job, err := client.GetQuery(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("fetching query: %w", err)
		}
		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return writeJSON(cmd.OutOrStdout(), job)
		}
		printJob(cmd.OutOrStdout(), job)
		return nil
	},
}

// --- summaries ---

var summariesCmd = &cobra.Command{
	Use:   "summaries <id>",
	Short: "Print the paper summaries of a search",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		summaries, err := client.GetSummaries(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("fetching summaries: %w", err)
		}
		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return writeJSON(cmd.OutOrStdout(), summaries)
		}
		printSummaries(cmd.OutOrStdout(), summaries)
		return nil
	},
}

// --- analyze ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze <id>",
	Short: "Start a comparative analysis of a completed search",
	Long: `Analyze asks the API to compare the summarized papers of a completed
search. The job moves to analyzing until the analysis is written; follow it
with watch or read it with analysis.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		job, err := client.GetQuery(ctx, args[0])
		if err != nil {
			return fmt.Errorf("fetching query: %w", err)
		}
		if job.Status != types.StatusCompleted {
			return fmt.Errorf("query %s is %s: %w", job.ID, job.DisplayStatus(), poller.ErrAnalysisUnavailable)
		}
		analysis, err := client.GetAnalysis(ctx, job.ID)
		if err != nil {
			return fmt.Errorf("fetching analysis: %w", err)
		}
		if analysis.Status != types.AnalysisPending {
			return fmt.Errorf("query %s analysis is %s: %w", job.ID, analysis.Status, poller.ErrAnalysisUnavailable)
		}

		if err := client.StartAnalysis(ctx, job.ID); err != nil {
			return fmt.Errorf("starting analysis: %w", err)
		}
		logger.Info().Str("query_id", job.ID).Msg("analysis started")
		fmt.Fprintf(cmd.OutOrStdout(), "Analysis started for %s\n", job.ID)
		return nil
	},
}

// --- analysis ---

var analysisCmd = &cobra.Command{
	Use:   "analysis <id>",
	Short: "Print the comparative analysis of a search",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		analysis, err := client.GetAnalysis(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("fetching analysis: %w", err)
		}
		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return writeJSON(cmd.OutOrStdout(), analysis)
		}
		printAnalysis(cmd.OutOrStdout(), analysis)
		return nil
	},
}

// --- delete ---

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a search and its summaries from the server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			ok, err := confirm(cmd, "Are you sure you want to delete this query? This action cannot be undone.")
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Delete cancelled.")
				return nil
			}
		}

		client, err := newClient()
		if err != nil {
			return err
		}
		if err := client.DeleteQuery(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("deleting query: %w", err)
		}
		logger.Info().Str("query_id", args[0]).Msg("query deleted")
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	},
}

// --- shared helpers ---

func confirm(cmd *cobra.Command, question string) (bool, error) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", question)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func init() {
	searchCmd.Flags().Int("num-results", types.DefaultNumResults, "number of papers to retrieve (1-20)")
	searchCmd.Flags().String("provider", types.ProviderDeepSeek, "summarization provider: "+strings.Join(types.Providers, ", "))
	searchCmd.Flags().Bool("sort-by-date", false, "prefer recent papers over relevance")
	searchCmd.Flags().Bool("full-text", true, "summarize full text instead of abstracts")
	searchCmd.Flags().Bool("watch", false, "open the interactive detail view after submitting")
	searchCmd.Flags().Bool("json", false, "output the created job as JSON")

	listCmd.Flags().Bool("json", false, "output results as JSON")
	statusCmd.Flags().Bool("json", false, "output the job as JSON")
	summariesCmd.Flags().Bool("json", false, "output summaries as JSON")
	analysisCmd.Flags().Bool("json", false, "output the analysis as JSON")
	deleteCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")

	rootCmd.AddCommand(searchCmd, listCmd, statusCmd, summariesCmd,
		analyzeCmd, analysisCmd, deleteCmd)
}

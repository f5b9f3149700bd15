// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"

	"github.com/pdiddy/research-summarizer/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch <id>",
	Short: "Follow a search interactively until it finishes",
	Long: `Watch opens the query detail view. While the job is processing or
analyzing it is re-fetched on the configured poll interval; once it completes
the summaries and comparative analysis are shown.

Keys: r refresh, a generate analysis, tab switch panel, c copy, esc back.`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{annotationInteractive: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd, tui.Options{OpenQuery: args[0]})
	},
}

var tuiCmd = &cobra.Command{
	Use:         "tui",
	Short:       "Open the interactive client",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationInteractive: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		newSearch, _ := cmd.Flags().GetBool("new")
		return runTUI(cmd, tui.Options{NewSearch: newSearch})
	},
}

func runTUI(cmd *cobra.Command, opts tui.Options) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	opts.Interval = pollInterval()
	opts.Logger = logger
	return tui.Run(cmd.Context(), client, opts)
}

func init() {
	tuiCmd.Flags().Bool("new", false, "start on the search form")

	rootCmd.AddCommand(watchCmd, tuiCmd)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/research-summarizer/pkg/types"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// truncate shortens s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

func formatTimestamp(ts types.Timestamp) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format("2006-01-02 15:04")
}

func printJobTable(w io.Writer, jobs []types.QueryJob) {
	fmt.Fprintf(w, "%-36s  %-10s  %-6s  %-9s  %-16s  %s\n",
		"ID", "Status", "Papers", "Provider", "Submitted", "Query")
	fmt.Fprintln(w, strings.Repeat("-", 120))
	for _, j := range jobs {
		fmt.Fprintf(w, "%-36s  %-10s  %-6d  %-9s  %-16s  %s\n",
			truncate(j.ID, 36), j.DisplayStatus(), j.NumPapers,
			truncate(j.Provider, 9), formatTimestamp(j.Timestamp), truncate(j.Query, 40))
	}
	fmt.Fprintf(w, "\n%d queries\n", len(jobs))
}

func printJob(w io.Writer, j types.QueryJob) {
	fmt.Fprintf(w, "ID:        %s\n", j.ID)
	fmt.Fprintf(w, "Query:     %s\n", j.Query)
	fmt.Fprintf(w, "Status:    %s\n", j.DisplayStatus())
	fmt.Fprintf(w, "Provider:  %s\n", j.Provider)
	fmt.Fprintf(w, "Papers:    %d\n", j.NumPapers)
	fmt.Fprintf(w, "Submitted: %s\n", formatTimestamp(j.Timestamp))
}

func printSummaries(w io.Writer, summaries []types.Summary) {
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No summaries available yet.")
		return
	}
	for i, s := range summaries {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%d. %s\n", i+1, s.Title)
		var meta []string
		for _, m := range []string{s.Authors, s.PublicationDate} {
			if m != "" {
				meta = append(meta, m)
			}
		}
		if s.ArxivID != "" {
			meta = append(meta, "arXiv:"+s.ArxivID)
		}
		if len(meta) > 0 {
			fmt.Fprintf(w, "   %s\n", strings.Join(meta, " | "))
		}
		fmt.Fprintf(w, "\n%s\n", strings.TrimSpace(s.Content))
	}
}

func printAnalysis(w io.Writer, a types.Analysis) {
	switch a.Status {
	case types.AnalysisCompleted:
		fmt.Fprintln(w, strings.TrimSpace(a.Content))
	case types.AnalysisAnalyzing:
		fmt.Fprintln(w, "Comparative analysis is being generated.")
	default:
		fmt.Fprintln(w, "No comparative analysis yet.")
	}
}

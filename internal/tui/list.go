// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/pdiddy/research-summarizer/pkg/types"
)

// queryList is the past-searches screen.
type queryList struct {
	jobs    []types.QueryJob
	cursor  int
	loading bool
	err     error

	confirmDelete string
	deleting      bool
	status        string
}

func (l *queryList) setJobs(jobs []types.QueryJob) {
	sorted := append([]types.QueryJob(nil), jobs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp.Time)
	})
	l.jobs = sorted
	l.cursor = clampInt(l.cursor, 0, max(len(sorted)-1, 0))
}

func (l *queryList) selected() (types.QueryJob, bool) {
	if len(l.jobs) == 0 || l.cursor < 0 || l.cursor >= len(l.jobs) {
		return types.QueryJob{}, false
	}
	return l.jobs[l.cursor], true
}

func (l *queryList) move(delta int) {
	if len(l.jobs) == 0 {
		l.cursor = 0
		return
	}
	l.cursor = clampInt(l.cursor+delta, 0, len(l.jobs)-1)
}

func (l *queryList) view(width, height int, now time.Time) string {
	header := titleStyle.Render("Past Searches") + "\n" +
		mutedStyle.Render("up/down: move | enter: open | n: new search | d: delete | r: reload | q: quit")

	if l.confirmDelete != "" {
		return lipgloss.JoinVertical(lipgloss.Left, header, l.viewConfirm(width))
	}

	var lines []string
	switch {
	case l.loading && len(l.jobs) == 0:
		lines = append(lines, mutedStyle.Render("Loading..."))
	case l.err != nil && len(l.jobs) == 0:
		lines = append(lines, errorStyle.Render(errorText(l.err)))
		lines = append(lines, mutedStyle.Render("Press r to retry."))
	case len(l.jobs) == 0:
		lines = append(lines, mutedStyle.Render("No searches yet."))
		lines = append(lines, mutedStyle.Render("Press n to start one."))
	}

	maxRows := clampInt(height-8, 4, 30)
	start, end := listWindow(len(l.jobs), l.cursor, maxRows)
	if start > 0 {
		lines = append(lines, mutedStyle.Render("..."))
	}
	for i := start; i < end; i++ {
		j := l.jobs[i]
		row := fmt.Sprintf("%-40s %-10s %2d papers  %s",
			truncateRunes(j.Query, 40), cleanProvider(j.Provider), j.NumPapers, relativeAge(now, j.Timestamp.Time))
		row = truncateRunes(row, max(width-20, 20))
		if i == l.cursor {
			row = selStyle.Render(row)
		}
		lines = append(lines, row+"  "+statusBadge(j))
	}
	if end < len(l.jobs) {
		lines = append(lines, mutedStyle.Render("..."))
	}

	status := mutedStyle.Render(l.status)
	if l.err != nil && len(l.jobs) > 0 {
		status = errorStyle.Render(errorText(l.err))
	}
	panel := panelStyle.Width(max(width-2, 40)).Render(strings.Join(lines, "\n"))
	return lipgloss.JoinVertical(lipgloss.Left, header, panel, status)
}

func (l *queryList) viewConfirm(width int) string {
	text := "Are you sure you want to delete this query? This action cannot be undone.\n\n" +
		kv("query", l.confirmQuery()) + "\n\n"
	if l.deleting {
		text += mutedStyle.Render("Deleting...")
	} else {
		text += "Press y or Enter to confirm, n or Esc to cancel."
	}
	return panelStyle.Width(clampInt(width-8, 36, 80)).Render(text)
}

func (l *queryList) confirmQuery() string {
	for _, j := range l.jobs {
		if j.ID == l.confirmDelete {
			return j.Query
		}
	}
	return l.confirmDelete
}

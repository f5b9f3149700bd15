// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pdiddy/research-summarizer/internal/api"
	"github.com/pdiddy/research-summarizer/internal/poller"
	"github.com/pdiddy/research-summarizer/pkg/types"
)

type detailPanel int

const (
	panelSummaries detailPanel = iota
	panelAnalysis
)

// queryDetail renders one poller session. It owns the session and closes
// it when the user leaves.
type queryDetail struct {
	session *poller.Session
	spinner spinner.Model
	panel   detailPanel
	cursor  int
	scroll  int
	copy    func(string) error
	status  string
}

func newQueryDetail(s *poller.Session, copyFn func(string) error) *queryDetail {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = warnStyle
	return &queryDetail{session: s, spinner: sp, copy: copyFn}
}

func (d *queryDetail) init() tea.Cmd {
	return tea.Batch(d.session.Init(), d.spinner.Tick)
}

func (d *queryDetail) close() {
	d.session.Close()
}

// update applies msg. back reports that the user asked to leave.
func (d *queryDetail) update(msg tea.Msg) (back bool, cmd tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		d.spinner, cmd = d.spinner.Update(msg)
		return false, cmd
	case tea.KeyMsg:
		return d.updateKeys(msg)
	default:
		return false, d.session.Update(msg)
	}
}

func (d *queryDetail) updateKeys(msg tea.KeyMsg) (bool, tea.Cmd) {
	v := d.session.View()
	switch msg.String() {
	case "esc", "backspace":
		d.close()
		return true, nil
	case "r":
		d.status = ""
		return false, d.session.Update(poller.RefreshMsg{})
	case "a":
		d.status = ""
		return false, d.session.Update(poller.StartAnalysisMsg{})
	case "x":
		return false, d.session.Update(poller.DismissErrorMsg{})
	case "tab", "shift+tab":
		if d.panel == panelSummaries {
			d.panel = panelAnalysis
		} else {
			d.panel = panelSummaries
		}
		d.scroll = 0
	case "up", "k":
		if d.panel == panelSummaries && d.cursor > 0 {
			d.cursor--
			d.scroll = 0
		}
	case "down", "j":
		if d.panel == panelSummaries && d.cursor < len(v.Summaries)-1 {
			d.cursor++
			d.scroll = 0
		}
	case "pgdown", "ctrl+d", " ":
		d.scroll += 10
	case "pgup", "ctrl+u":
		d.scroll = max(d.scroll-10, 0)
	case "c":
		d.copySelection(v)
	}
	return false, nil
}

func (d *queryDetail) copySelection(v poller.View) {
	var text string
	switch {
	case d.panel == panelAnalysis && v.Analysis.Status == types.AnalysisCompleted:
		text = v.Analysis.Content
	case d.panel == panelSummaries && d.cursor < len(v.Summaries):
		s := v.Summaries[d.cursor]
		text = "# " + s.Title + "\n\n" + s.Authors + "\n\n" + s.Content
	}
	if text == "" {
		d.status = "nothing to copy"
		return
	}
	if err := d.copy(text); err != nil {
		d.status = "error: " + err.Error()
		return
	}
	d.status = "copied to clipboard"
}

func errorText(err error) string {
	return api.Detail(err, genericLoadError)
}

func (d *queryDetail) view(width, height int) string {
	v := d.session.View()
	width = max(width, 40)

	var b strings.Builder
	if v.Job == nil {
		b.WriteString(titleStyle.Render("Query") + "\n")
		switch {
		case v.Loading:
			b.WriteString(d.spinner.View() + " Loading query...\n")
		case v.Err != nil:
			b.WriteString(errorStyle.Render(errorText(v.Err)) + "\n")
			b.WriteString(mutedStyle.Render("r: retry | esc: back") + "\n")
		}
		return b.String()
	}

	job := *v.Job
	title := titleStyle.Render(truncateRunes(job.Query, width-20)) + "  " + statusBadge(job)
	if v.Loading || job.Status.InFlight() {
		title += " " + d.spinner.View()
	}
	b.WriteString(title + "\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%s | %d papers | %s",
		cleanProvider(job.Provider), job.NumPapers, job.Timestamp.Format("2006-01-02 15:04"))) + "\n")
	b.WriteString(mutedStyle.Render(d.hints()) + "\n")

	if v.Err != nil {
		b.WriteString(errorStyle.Render(errorText(v.Err)) + mutedStyle.Render("  (x: dismiss, r: retry)") + "\n")
	}
	if v.Notice != "" {
		b.WriteString(okStyle.Render(v.Notice) + "\n")
	}
	if d.status != "" {
		b.WriteString(mutedStyle.Render(d.status) + "\n")
	}

	bodyH := max(height-8, 6)
	switch job.Status {
	case types.StatusFailed:
		b.WriteString(panelStyle.Width(width-2).Render(errorStyle.Render("The search failed.") +
			"\nPlease try a different query or provider."))
	case types.StatusProcessing, types.StatusUnknown:
		b.WriteString(panelStyle.Width(width-2).Render(d.spinner.View() +
			" Searching and summarizing papers. This view refreshes automatically."))
	default:
		b.WriteString(d.viewTabs() + "\n")
		if d.panel == panelAnalysis {
			b.WriteString(d.viewAnalysis(v, width, bodyH))
		} else {
			b.WriteString(d.viewSummaries(v, width, bodyH))
		}
	}
	return b.String()
}

func (d *queryDetail) hints() string {
	h := "r: refresh | tab: summaries/analysis | c: copy | esc: back"
	if d.session.CanStartAnalysis() {
		h = "a: generate comparative analysis | " + h
	}
	return h
}

func (d *queryDetail) viewTabs() string {
	s, a := tabStyle, tabStyle
	if d.panel == panelAnalysis {
		a = tabActStyle
	} else {
		s = tabActStyle
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, s.Render("Summaries"), a.Render("Comparative Analysis"))
}

func (d *queryDetail) viewSummaries(v poller.View, width, height int) string {
	if len(v.Summaries) == 0 {
		return panelStyle.Width(width - 2).Render(mutedStyle.Render("No summaries available."))
	}
	d.cursor = clampInt(d.cursor, 0, len(v.Summaries)-1)

	listRows := clampInt(len(v.Summaries), 1, 6)
	start, end := listWindow(len(v.Summaries), d.cursor, listRows)
	lines := make([]string, 0, listRows+2)
	for i := start; i < end; i++ {
		line := truncateRunes(fmt.Sprintf("%d. %s", i+1, v.Summaries[i].Title), width-8)
		if i == d.cursor {
			line = selStyle.Render(line)
		}
		lines = append(lines, line)
	}

	s := v.Summaries[d.cursor]
	meta := s.Authors
	if s.PublicationDate != "" {
		meta += " | " + s.PublicationDate
	}
	if s.ArxivID != "" {
		meta += " | arXiv:" + s.ArxivID
	}
	content := d.scrolled(s.Content, width-6, max(height-listRows-4, 3))
	body := strings.Join(lines, "\n") + "\n\n" + mutedStyle.Render(meta) + "\n" + content
	return panelStyle.Width(width - 2).Render(body)
}

func (d *queryDetail) viewAnalysis(v poller.View, width, height int) string {
	var body string
	switch v.Analysis.Status {
	case types.AnalysisCompleted:
		body = d.scrolled(v.Analysis.Content, width-6, height)
	case types.AnalysisAnalyzing:
		body = d.spinner.View() + " Generating comparative analysis..."
	default:
		body = mutedStyle.Render("No comparative analysis yet.")
		if d.session.CanStartAnalysis() {
			body += "\nPress a to generate one."
		}
		if v.StartingAnalysis {
			body = d.spinner.View() + " Starting analysis..."
		}
	}
	return panelStyle.Width(width - 2).Render(body)
}

// scrolled wraps text to width and returns the window starting at the
// current scroll offset.
func (d *queryDetail) scrolled(text string, width, height int) string {
	wrapped := lipgloss.NewStyle().Width(max(width, 10)).Render(text)
	lines := strings.Split(wrapped, "\n")
	d.scroll = clampInt(d.scroll, 0, max(len(lines)-height, 0))
	end := min(d.scroll+height, len(lines))
	return strings.Join(lines[d.scroll:end], "\n")
}

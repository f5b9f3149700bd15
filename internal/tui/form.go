// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pdiddy/research-summarizer/internal/api"
	"github.com/pdiddy/research-summarizer/pkg/types"
)

type fieldKind int

const (
	fieldString fieldKind = iota
	fieldInt
	fieldBool
	fieldSelect
)

type formField struct {
	Key     string
	Label   string
	Help    string
	Kind    fieldKind
	Value   string
	Options []string
}

// searchForm collects a SearchRequest. One textinput is shared by all text
// fields; it is loaded with the focused field's value on every move.
type searchForm struct {
	Fields []formField
	Index  int
	Input  textinput.Model
	Error  string
	Saving bool
}

func newSearchForm(width int) *searchForm {
	def := types.NewSearchRequest("")
	f := &searchForm{
		Fields: []formField{
			{Key: "query", Label: "Search Query", Help: "e.g. quantum computing, large language models", Kind: fieldString},
			{Key: "num_results", Label: "Number of Papers", Help: fmt.Sprintf("%d to %d", types.MinNumResults, types.MaxNumResults), Kind: fieldInt, Value: strconv.Itoa(def.NumResults)},
			{Key: "provider", Label: "Provider", Help: "Model used to summarize the papers", Kind: fieldSelect, Value: def.Provider, Options: types.Providers},
			{Key: "sort_by_date", Label: "Sort by Date", Help: "Newest papers first instead of relevance", Kind: fieldBool, Value: boolToYN(def.SortByDate)},
			{Key: "full_text", Label: "Full Text", Help: "Summarize the full paper, not just the abstract", Kind: fieldBool, Value: boolToYN(def.FullText)},
		},
	}

	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = 500
	input.Width = clampInt(width-8, 20, 120)
	f.Input = input
	f.loadFieldIntoInput()
	f.Input.Focus()
	return f
}

func (f *searchForm) currentField() formField {
	if len(f.Fields) == 0 {
		return formField{}
	}
	f.Index = clampInt(f.Index, 0, len(f.Fields)-1)
	return f.Fields[f.Index]
}

func (f *searchForm) commitInput() {
	if len(f.Fields) == 0 {
		return
	}
	k := f.Fields[f.Index].Kind
	if k == fieldString || k == fieldInt {
		f.Fields[f.Index].Value = f.Input.Value()
	}
}

func (f *searchForm) loadFieldIntoInput() {
	if len(f.Fields) == 0 {
		return
	}
	f.Input.SetValue(f.Fields[f.Index].Value)
	f.Input.CursorEnd()
}

func (f *searchForm) move(delta int) {
	f.commitInput()
	f.Index = clampInt(f.Index+delta, 0, len(f.Fields)-1)
	f.loadFieldIntoInput()
}

func (f *searchForm) setBool(v bool) {
	if f.Fields[f.Index].Kind != fieldBool {
		return
	}
	f.Fields[f.Index].Value = boolToYN(v)
}

func (f *searchForm) toggleBool() {
	v, _ := parseBool(f.Fields[f.Index].Value)
	f.setBool(!v)
}

func (f *searchForm) cycleSelect(delta int) {
	curr := f.Fields[f.Index]
	if curr.Kind != fieldSelect || len(curr.Options) == 0 {
		return
	}
	pos := 0
	for i, opt := range curr.Options {
		if strings.EqualFold(opt, curr.Value) {
			pos = i
			break
		}
	}
	n := len(curr.Options)
	f.Fields[f.Index].Value = curr.Options[(pos+delta+n)%n]
}

func (f *searchForm) value(key string) string {
	for _, field := range f.Fields {
		if field.Key == key {
			return strings.TrimSpace(field.Value)
		}
	}
	return ""
}

// request builds and validates the SearchRequest the form describes.
func (f *searchForm) request() (types.SearchRequest, error) {
	f.commitInput()
	req := types.NewSearchRequest(f.value("query"))

	n, err := strconv.Atoi(f.value("num_results"))
	if err != nil {
		return req, fmt.Errorf("%w: number of papers must be between %d and %d",
			api.ErrValidation, types.MinNumResults, types.MaxNumResults)
	}
	req.NumResults = n
	req.Provider = f.value("provider")
	req.SortByDate, _ = parseBool(f.value("sort_by_date"))
	req.FullText, _ = parseBool(f.value("full_text"))

	req.Query = strings.TrimSpace(req.Query)
	if err := api.ValidateSearch(req); err != nil {
		return req, err
	}
	return req, nil
}

// update handles a key on the form. submit is non-nil when the form is
// valid and the user asked to send it.
func (f *searchForm) update(msg tea.KeyMsg) (submit *types.SearchRequest, cmd tea.Cmd) {
	if f.Saving {
		return nil, nil
	}
	kind := f.currentField().Kind
	key := strings.ToLower(msg.String())

	switch key {
	case "up", "shift+tab":
		f.move(-1)
		return nil, nil
	case "down", "tab":
		f.move(1)
		return nil, nil
	case "enter", "ctrl+s":
		if f.Index < len(f.Fields)-1 && key != "ctrl+s" {
			f.move(1)
			return nil, nil
		}
		req, err := f.request()
		if err != nil {
			f.Error = api.Detail(err, err.Error())
			return nil, nil
		}
		f.Error = ""
		f.Saving = true
		return &req, nil
	case " ", "space":
		switch kind {
		case fieldBool:
			f.toggleBool()
			return nil, nil
		case fieldSelect:
			f.cycleSelect(1)
			return nil, nil
		}
	case "left", "h":
		switch kind {
		case fieldBool:
			f.toggleBool()
			return nil, nil
		case fieldSelect:
			f.cycleSelect(-1)
			return nil, nil
		}
	case "right", "l":
		switch kind {
		case fieldBool:
			f.toggleBool()
			return nil, nil
		case fieldSelect:
			f.cycleSelect(1)
			return nil, nil
		}
	case "y", "n":
		if kind == fieldBool {
			f.setBool(key == "y")
			return nil, nil
		}
	}

	if kind == fieldBool || kind == fieldSelect {
		return nil, nil
	}
	f.Input, cmd = f.Input.Update(msg)
	f.Fields[f.Index].Value = f.Input.Value()
	return nil, cmd
}

func (f *searchForm) view(width int) string {
	header := titleStyle.Render("New Search")
	hints := mutedStyle.Render("tab/shift+tab: move | left/right/space: change | enter: next/submit | ctrl+s: submit | esc: back")

	lines := make([]string, 0, len(f.Fields)+6)
	for i, field := range f.Fields {
		prefix := "  "
		if i == f.Index {
			prefix = "> "
		}
		display := strings.TrimSpace(field.Value)
		switch field.Kind {
		case fieldBool:
			v, _ := parseBool(display)
			display = yesNo(v)
		case fieldSelect:
			display = "[" + display + "]"
		}
		if display == "" {
			display = mutedStyle.Render("(empty)")
		}
		lines = append(lines, truncateRunes(fmt.Sprintf("%s%s: %s", prefix, field.Label, display), max(width-6, 20)))
	}

	curr := f.currentField()
	body := strings.Join(lines, "\n") + "\n\n" + curr.Label + "\n"
	if curr.Help != "" {
		body += mutedStyle.Render(curr.Help) + "\n"
	}
	if curr.Kind == fieldString || curr.Kind == fieldInt {
		body += f.Input.View()
	}
	switch {
	case f.Error != "":
		body += "\n" + errorStyle.Render(f.Error)
	case f.Saving:
		body += "\n" + mutedStyle.Render("Submitting...")
	}

	panel := panelStyle.Width(max(width, 40)).Render(body)
	return lipgloss.JoinVertical(lipgloss.Left, header, hints, panel)
}

func parseBool(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "y", "yes", "true", "1":
		return true, true
	case "n", "no", "false", "0", "":
		return false, true
	default:
		return false, false
	}
}

func boolToYN(v bool) string {
	if v {
		return "y"
	}
	return "n"
}

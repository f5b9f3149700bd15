// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tui is the interactive terminal client: a list of past searches,
// a search form, and a query detail screen that follows a job until it
// finishes.
package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/phuslu/log"

	"github.com/pdiddy/research-summarizer/internal/api"
	"github.com/pdiddy/research-summarizer/internal/logging"
	"github.com/pdiddy/research-summarizer/internal/poller"
	"github.com/pdiddy/research-summarizer/pkg/types"
)

// Client is the part of the API the views use.
type Client interface {
	poller.Fetcher
	Submit(ctx context.Context, req types.SearchRequest) (types.QueryJob, error)
	ListQueries(ctx context.Context) ([]types.QueryJob, error)
	DeleteQuery(ctx context.Context, id string) error
}

// Options configures the app. Zero values pick sensible defaults.
type Options struct {
	Interval  time.Duration
	Logger    *log.Logger
	Clock     poller.Clock
	Clipboard func(string) error
	Now       func() time.Time

	// OpenQuery starts on the detail screen for this job id.
	OpenQuery string
	// NewSearch starts on the search form.
	NewSearch bool
}

type screen int

const (
	screenList screen = iota
	screenForm
	screenDetail
)

type (
	listLoadedMsg struct {
		jobs []types.QueryJob
		err  error
	}
	deletedMsg struct {
		id  string
		err error
	}
	submittedMsg struct {
		job types.QueryJob
		err error
	}
)

// App is the root model routing between screens.
type App struct {
	ctx    context.Context
	client Client
	opts   Options

	screen screen
	list   *queryList
	form   *searchForm
	detail *queryDetail

	width  int
	height int
}

// New builds the root model.
func New(ctx context.Context, client Client, opts Options) App {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	a := App{
		ctx:    ctx,
		client: client,
		opts:   opts,
		screen: screenList,
		list:   &queryList{loading: true},
		width:  100,
		height: 30,
	}
	switch {
	case strings.TrimSpace(opts.OpenQuery) != "":
		a.detail = a.newDetail(strings.TrimSpace(opts.OpenQuery))
		a.screen = screenDetail
	case opts.NewSearch:
		a.form = newSearchForm(a.width)
		a.screen = screenForm
	}
	return a
}

// Run starts the program and blocks until the user quits.
func Run(ctx context.Context, client Client, opts Options) error {
	p := tea.NewProgram(New(ctx, client, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if app, ok := final.(App); ok && app.detail != nil {
		app.detail.close()
	}
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

func (a App) Init() tea.Cmd {
	if a.screen == screenDetail && a.detail != nil {
		return a.detail.init()
	}
	return a.loadListCmd()
}

func (a App) newDetail(id string) *queryDetail {
	opts := []poller.Option{
		poller.WithContext(a.ctx),
		poller.WithLogger(a.opts.Logger),
		poller.WithInterval(a.opts.Interval),
	}
	if a.opts.Clock != nil {
		opts = append(opts, poller.WithClock(a.opts.Clock))
	}
	return newQueryDetail(poller.New(id, a.client, opts...), a.opts.Clipboard)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.form != nil {
			a.form.Input.Width = clampInt(a.width-8, 20, 120)
		}
		return a, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			if a.detail != nil {
				a.detail.close()
			}
			return a, tea.Quit
		}
	case listLoadedMsg:
		a.list.loading = false
		a.list.err = msg.err
		if msg.err == nil {
			a.list.setJobs(msg.jobs)
		}
		return a, nil
	case deletedMsg:
		a.list.deleting = false
		a.list.confirmDelete = ""
		if msg.err != nil {
			a.list.status = "error: " + api.Detail(msg.err, "Failed to delete query. Please try again.")
			return a, nil
		}
		a.list.status = "query deleted"
		return a, a.loadListCmd()
	case submittedMsg:
		if a.form == nil {
			return a, nil
		}
		if msg.err != nil {
			a.form.Saving = false
			a.form.Error = api.Detail(msg.err, "Failed to submit search. Please try again.")
			return a, nil
		}
		a.form = nil
		return a.openDetail(msg.job.ID)
	}

	switch a.screen {
	case screenDetail:
		return a.updateDetail(msg)
	case screenForm:
		if key, ok := msg.(tea.KeyMsg); ok {
			return a.updateForm(key)
		}
	case screenList:
		if key, ok := msg.(tea.KeyMsg); ok {
			return a.updateList(key)
		}
	}
	return a, nil
}

func (a App) openDetail(id string) (tea.Model, tea.Cmd) {
	if a.detail != nil {
		a.detail.close()
	}
	a.detail = a.newDetail(id)
	a.screen = screenDetail
	return a, a.detail.init()
}

func (a App) updateDetail(msg tea.Msg) (tea.Model, tea.Cmd) {
	if a.detail == nil {
		a.screen = screenList
		return a, a.loadListCmd()
	}
	back, cmd := a.detail.update(msg)
	if back {
		a.detail = nil
		a.screen = screenList
		a.list.loading = true
		return a, a.loadListCmd()
	}
	return a, cmd
}

func (a App) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.form == nil {
		a.screen = screenList
		return a, nil
	}
	if msg.String() == "esc" {
		a.form = nil
		a.screen = screenList
		a.list.status = "search cancelled"
		return a, nil
	}
	submit, cmd := a.form.update(msg)
	if submit != nil {
		return a, a.submitCmd(*submit)
	}
	return a, cmd
}

func (a App) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.list.confirmDelete != "" {
		if a.list.deleting {
			return a, nil
		}
		switch msg.String() {
		case "esc", "n":
			a.list.confirmDelete = ""
			a.list.status = "delete cancelled"
		case "y", "enter":
			a.list.deleting = true
			return a, a.deleteCmd(a.list.confirmDelete)
		}
		return a, nil
	}

	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "up", "k":
		a.list.move(-1)
	case "down", "j":
		a.list.move(1)
	case "r":
		a.list.loading = true
		a.list.status = ""
		return a, a.loadListCmd()
	case "n":
		a.form = newSearchForm(a.width)
		a.screen = screenForm
		a.list.status = ""
	case "d":
		job, ok := a.list.selected()
		if !ok {
			a.list.status = "select a query to delete"
			return a, nil
		}
		a.list.confirmDelete = job.ID
	case "enter":
		job, ok := a.list.selected()
		if !ok {
			return a, nil
		}
		return a.openDetail(job.ID)
	}
	return a, nil
}

func (a App) View() string {
	switch a.screen {
	case screenDetail:
		if a.detail != nil {
			return a.detail.view(a.width, a.height)
		}
	case screenForm:
		if a.form != nil {
			return a.form.view(a.width)
		}
	}
	return a.list.view(a.width, a.height, a.opts.Now())
}

func (a App) loadListCmd() tea.Cmd {
	ctx, client := a.ctx, a.client
	return func() tea.Msg {
		jobs, err := client.ListQueries(ctx)
		return listLoadedMsg{jobs: jobs, err: err}
	}
}

func (a App) deleteCmd(id string) tea.Cmd {
	ctx, client, l := a.ctx, a.client, a.opts.Logger
	return func() tea.Msg {
		err := client.DeleteQuery(ctx, id)
		if err != nil {
			l.Error().Str("query_id", id).Err(err).Msg("delete failed")
		}
		return deletedMsg{id: id, err: err}
	}
}

func (a App) submitCmd(req types.SearchRequest) tea.Cmd {
	ctx, client, l := a.ctx, a.client, a.opts.Logger
	return func() tea.Msg {
		job, err := client.Submit(ctx, req)
		if err != nil {
			l.Error().Str("query", req.Query).Err(err).Msg("submit failed")
			return submittedMsg{err: err}
		}
		l.Info().Str("query_id", job.ID).Str("query", req.Query).Msg("search submitted")
		return submittedMsg{job: job}
	}
}

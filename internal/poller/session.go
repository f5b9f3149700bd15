// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package poller drives the query detail view: it fetches a job's status,
// follows the job through processing and analyzing, fetches summaries and
// the comparative analysis once they exist, and polls on a timer until the
// job reaches a terminal state.
//
// A Session is a bubbletea component. Every state change happens in Update
// on the program's single event loop; network calls are tea.Cmds whose
// results come back as messages. No locking is needed.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/phuslu/log"

	"github.com/pdiddy/research-summarizer/internal/logging"
	"github.com/pdiddy/research-summarizer/pkg/types"
)

// DefaultInterval is the delay between automatic fetches of an in-flight job.
const DefaultInterval = 10 * time.Second

// ErrAnalysisUnavailable is reported when a start request arrives while the
// job cannot take one.
var ErrAnalysisUnavailable = errors.New("analysis can only be generated for a completed search that has none yet")

// Fetcher is the part of the API client a session needs.
type Fetcher interface {
	GetQuery(ctx context.Context, id string) (types.QueryJob, error)
	GetSummaries(ctx context.Context, id string) ([]types.Summary, error)
	GetAnalysis(ctx context.Context, id string) (types.Analysis, error)
	StartAnalysis(ctx context.Context, id string) error
}

// Messages the view sends to a session.
type (
	// RefreshMsg requests a manual poll tick.
	RefreshMsg struct{}
	// StartAnalysisMsg requests comparative analysis generation.
	StartAnalysisMsg struct{}
	// DismissErrorMsg clears the error banner.
	DismissErrorMsg struct{}
)

// Messages a session sends itself. Each carries the session id so results
// addressed to an earlier session are ignored.
type (
	tickMsg struct {
		session string
		seq     uint64
	}
	jobMsg struct {
		session string
		job     types.QueryJob
		err     error
	}
	summariesMsg struct {
		session   string
		summaries []types.Summary
		err       error
	}
	analysisMsg struct {
		session  string
		analysis types.Analysis
		err      error
	}
	analysisStartedMsg struct {
		session string
		err     error
	}
)

// View is the cached state a renderer draws from.
type View struct {
	Job       *types.QueryJob
	Summaries []types.Summary
	Analysis  types.Analysis

	// Loading is true while a status cycle (job fetch plus dependent
	// fetches) is in flight.
	Loading bool

	// StartingAnalysis is true while a start-analysis command is outstanding.
	StartingAnalysis bool

	// Err is the last fetch or command failure. Data above is left as it was.
	Err error

	// Notice is a short outcome message for the last user command.
	Notice string

	Closed bool
}

// Option configures a Session.
type Option func(*Session)

// WithInterval sets the poll interval.
func WithInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithClock replaces the real clock.
func WithClock(c Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithContext sets the parent context for all fetches.
func WithContext(ctx context.Context) Option {
	return func(s *Session) { s.parent = ctx }
}

// Session is one viewing session of one Query Job.
type Session struct {
	id       string
	queryID  string
	api      Fetcher
	clock    Clock
	interval time.Duration
	log      *log.Logger

	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc

	view     View
	timer    *pollTimer
	timerSeq uint64
	warned   map[string]bool
	closed   bool

	// A start was accepted but no fetch has shown its effect yet. The
	// follow-up cycle is deferred while another cycle is loading.
	awaitingAnalysis  bool
	cycleAfterStart   bool
	refreshAfterCycle bool
}

// New creates a session for queryID. Call Init to issue the first fetch.
func New(queryID string, api Fetcher, opts ...Option) *Session {
	s := &Session{
		id:       uuid.NewString(),
		queryID:  queryID,
		api:      api,
		clock:    RealClock{},
		interval: DefaultInterval,
		log:      logging.Discard(),
		parent:   context.Background(),
		view:     View{Analysis: types.Analysis{Status: types.AnalysisPending}},
		warned:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ctx, s.cancel = context.WithCancel(s.parent)
	return s
}

// ID returns the session id used in logs.
func (s *Session) ID() string { return s.id }

// QueryID returns the job this session watches.
func (s *Session) QueryID() string { return s.queryID }

// Interval returns the poll interval.
func (s *Session) Interval() time.Duration { return s.interval }

// View returns a snapshot of the cached state.
func (s *Session) View() View { return s.view }

// PollPending reports whether an automatic fetch is scheduled.
func (s *Session) PollPending() bool { return s.timer != nil }

// CanStartAnalysis reports whether a start-analysis command would be sent.
func (s *Session) CanStartAnalysis() bool {
	v := s.view
	return !s.closed && v.Job != nil && v.Job.Status == types.StatusCompleted &&
		v.Analysis.Status == types.AnalysisPending && !v.StartingAnalysis && !s.awaitingAnalysis
}

// Init issues the first fetch. No timer is scheduled until it resolves.
func (s *Session) Init() tea.Cmd {
	return s.beginCycle("initial")
}

// Update applies one message and returns the next command, if any.
func (s *Session) Update(msg tea.Msg) tea.Cmd {
	if s.closed {
		return nil
	}

	switch msg := msg.(type) {
	case RefreshMsg:
		return s.beginCycle("manual")
	case StartAnalysisMsg:
		return s.startAnalysis()
	case DismissErrorMsg:
		s.view.Err = nil
		return nil

	case tickMsg:
		if msg.session != s.id || msg.seq != s.timerSeq || s.timer == nil {
			return nil
		}
		s.timer = nil
		return s.beginCycle("poll")
	case jobMsg:
		if msg.session != s.id {
			return nil
		}
		return s.onJob(msg)
	case summariesMsg:
		if msg.session != s.id {
			return nil
		}
		return s.onSummaries(msg)
	case analysisMsg:
		if msg.session != s.id {
			return nil
		}
		return s.onAnalysis(msg)
	case analysisStartedMsg:
		if msg.session != s.id {
			return nil
		}
		return s.onAnalysisStarted(msg)
	}
	return nil
}

// Close ends the session: the pending timer is cancelled, in-flight
// requests are aborted, and later messages are discarded.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.stopTimer()
	s.cancel()
	s.view.Closed = true
	s.view.Loading = false
	s.log.Debug().Str("session", s.id).Str("query_id", s.queryID).Msg("session closed")
}

func (s *Session) beginCycle(trigger string) tea.Cmd {
	if s.view.Loading {
		s.log.Debug().Str("session", s.id).Str("trigger", trigger).Msg("fetch in flight, dropped")
		return nil
	}
	s.view.Loading = true
	if s.awaitingAnalysis {
		s.cycleAfterStart = true
	}
	s.log.Debug().Str("session", s.id).Str("query_id", s.queryID).Str("trigger", trigger).Msg("fetching status")

	ctx, api, id, sid := s.ctx, s.api, s.queryID, s.id
	return func() tea.Msg {
		job, err := api.GetQuery(ctx, id)
		return jobMsg{session: sid, job: job, err: err}
	}
}

func (s *Session) onJob(msg jobMsg) tea.Cmd {
	if msg.err != nil {
		s.fail("fetching query", msg.err)
		return s.endCycle()
	}

	job := msg.job
	s.view.Job = &job
	s.view.Err = nil
	s.log.Info().Str("session", s.id).Str("query_id", s.queryID).
		Str("status", job.DisplayStatus()).Msg("status fetched")

	switch job.Status {
	case types.StatusCompleted:
		s.stopTimer()
		return s.fetchSummaries()
	case types.StatusAnalyzing:
		return s.fetchAnalysis()
	case types.StatusFailed:
		s.stopTimer()
		return s.endCycle()
	case types.StatusProcessing:
		return s.endCycle()
	case types.StatusUnknown:
		if raw := job.RawStatus; !s.warned[raw] {
			s.warned[raw] = true
			s.log.Warn().Str("session", s.id).Str("query_id", s.queryID).
				Str("status", raw).Msg("unrecognised job status, continuing to poll")
		}
		return s.endCycle()
	default:
		return s.endCycle()
	}
}

func (s *Session) onSummaries(msg summariesMsg) tea.Cmd {
	if msg.err != nil {
		s.fail("fetching summaries", msg.err)
	} else {
		s.view.Summaries = msg.summaries
	}
	// The analysis is fetched even when summaries failed; the two panels
	// are independent.
	return s.fetchAnalysis()
}

func (s *Session) onAnalysis(msg analysisMsg) tea.Cmd {
	if msg.err != nil {
		s.fail("fetching analysis", msg.err)
		return s.endCycle()
	}
	a := msg.analysis
	if s.view.Job != nil && s.view.Job.Status == types.StatusAnalyzing && a.Status == types.AnalysisPending {
		a.Status = types.AnalysisAnalyzing
	}
	s.view.Analysis = a
	// Only a cycle begun after the start can tell whether it took effect.
	if s.awaitingAnalysis && (a.Status != types.AnalysisPending || s.cycleAfterStart) {
		s.awaitingAnalysis = false
		s.cycleAfterStart = false
	}
	return s.endCycle()
}

// endCycle finishes a status cycle and decides whether to poll again: an
// in-flight job gets exactly one fresh timer, a terminal or unknown-yet job
// gets none.
func (s *Session) endCycle() tea.Cmd {
	s.view.Loading = false
	if s.refreshAfterCycle {
		s.refreshAfterCycle = false
		s.stopTimer()
		return s.beginCycle("analysis started")
	}
	if s.view.Job == nil || s.view.Job.Status.IsTerminal() {
		s.stopTimer()
		return nil
	}
	return s.schedule()
}

func (s *Session) schedule() tea.Cmd {
	s.stopTimer()
	s.timerSeq++
	s.timer = newPollTimer(s.clock, s.interval)
	return s.timer.wait(tickMsg{session: s.id, seq: s.timerSeq})
}

func (s *Session) stopTimer() {
	if s.timer != nil {
		s.timer.cancel()
		s.timer = nil
	}
}

func (s *Session) fetchSummaries() tea.Cmd {
	ctx, api, id, sid := s.ctx, s.api, s.queryID, s.id
	return func() tea.Msg {
		summaries, err := api.GetSummaries(ctx, id)
		return summariesMsg{session: sid, summaries: summaries, err: err}
	}
}

func (s *Session) fetchAnalysis() tea.Cmd {
	ctx, api, id, sid := s.ctx, s.api, s.queryID, s.id
	return func() tea.Msg {
		a, err := api.GetAnalysis(ctx, id)
		return analysisMsg{session: sid, analysis: a, err: err}
	}
}

func (s *Session) startAnalysis() tea.Cmd {
	if s.view.StartingAnalysis {
		return nil
	}
	if !s.CanStartAnalysis() {
		s.view.Notice = ErrAnalysisUnavailable.Error()
		return nil
	}
	s.view.StartingAnalysis = true
	s.view.Notice = ""
	s.log.Info().Str("session", s.id).Str("query_id", s.queryID).Msg("starting analysis")

	ctx, api, id, sid := s.ctx, s.api, s.queryID, s.id
	return func() tea.Msg {
		return analysisStartedMsg{session: sid, err: api.StartAnalysis(ctx, id)}
	}
}

func (s *Session) onAnalysisStarted(msg analysisStartedMsg) tea.Cmd {
	s.view.StartingAnalysis = false
	if msg.err != nil {
		s.fail("starting analysis", msg.err)
		return nil
	}
	s.view.Notice = "Analysis started"
	s.awaitingAnalysis = true
	s.cycleAfterStart = false
	if s.view.Loading {
		s.refreshAfterCycle = true
		return nil
	}
	return s.beginCycle("analysis started")
}

func (s *Session) fail(op string, err error) {
	s.view.Err = fmt.Errorf("%s: %w", op, err)
	s.log.Error().Str("session", s.id).Str("query_id", s.queryID).Err(err).Msg(op + " failed")
}

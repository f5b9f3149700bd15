// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package poller

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Clock creates timers. Sessions use the real clock unless a test injects
// one it can fire by hand.
type Clock interface {
	NewTimer(d time.Duration) Timer
}

// Timer is a single-shot timer.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

// RealClock is backed by time.NewTimer.
type RealClock struct{}

// NewTimer starts a real timer.
func (RealClock) NewTimer(d time.Duration) Timer { return realTimer{time.NewTimer(d)} }

type realTimer struct{ t *time.Timer }

func (r realTimer) C() <-chan time.Time { return r.t.C }
func (r realTimer) Stop() bool          { return r.t.Stop() }

// pollTimer is the one owned handle to a scheduled poll. Cancel stops the
// underlying timer and releases the command waiting on it, so a cancelled
// timer never delivers a message.
type pollTimer struct {
	timer Timer
	stop  chan struct{}
	once  sync.Once
}

func newPollTimer(c Clock, d time.Duration) *pollTimer {
	return &pollTimer{timer: c.NewTimer(d), stop: make(chan struct{})}
}

func (p *pollTimer) cancel() {
	p.once.Do(func() {
		p.timer.Stop()
		close(p.stop)
	})
}

// wait returns the command that resumes the session when the timer fires.
func (p *pollTimer) wait(msg tea.Msg) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-p.timer.C():
			return msg
		case <-p.stop:
			return nil
		}
	}
}

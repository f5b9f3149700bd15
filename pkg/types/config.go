// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by everything that talks to the API.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "research-summarizer/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// APIConfig holds settings for the research summarizer API client.
type APIConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the API root including the /api prefix
	// (default http://localhost:8000/api).
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// Token is an optional bearer token. Usually loaded from .secrets/api-token.
	Token string `json:"-" yaml:"-" mapstructure:"token"`

	// MaxRetries bounds retries on 429 and cold-start 5xx responses (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// RequestsPerSecond limits outgoing requests. Zero disables the limiter.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// PollerConfig holds settings for the query detail status poller.
type PollerConfig struct {
	// Interval is the delay between automatic status fetches while a job is
	// in flight (default 10s).
	Interval time.Duration `json:"interval" yaml:"interval" mapstructure:"interval"`
}

// ArchiveConfig holds settings for the local archive of completed jobs.
type ArchiveConfig struct {
	// Dir contains archive.db.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// MaxResults is the default number of search hits (default 20).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`
}

// LogConfig selects log level and destination.
type LogConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// File receives log output. Empty writes to stderr, which is only
	// sensible for non-interactive commands.
	File string `json:"file" yaml:"file" mapstructure:"file"`
}

// DevserverConfig holds settings for the in-memory fake API.
type DevserverConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// PollsUntilComplete is the number of status reads a processing job
	// answers before it turns completed.
	PollsUntilComplete int `json:"polls_until_complete" yaml:"polls_until_complete" mapstructure:"polls_until_complete"`

	// PollsUntilAnalyzed is the number of analysis reads an analyzing job
	// answers before the analysis is written.
	PollsUntilAnalyzed int `json:"polls_until_analyzed" yaml:"polls_until_analyzed" mapstructure:"polls_until_analyzed"`
}

// Config groups all settings resolved at startup.
type Config struct {
	API       APIConfig       `json:"api" yaml:"api" mapstructure:"api"`
	Poller    PollerConfig    `json:"poller" yaml:"poller" mapstructure:"poller"`
	Archive   ArchiveConfig   `json:"archive" yaml:"archive" mapstructure:"archive"`
	Log       LogConfig       `json:"log" yaml:"log" mapstructure:"log"`
	Devserver DevserverConfig `json:"devserver" yaml:"devserver" mapstructure:"devserver"`
}

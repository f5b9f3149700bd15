// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the data structures shared by the API client, the
// status poller, the views, and the local archive.
package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// JobStatus is the server-reported state of a Query Job. The set is closed:
// any value the client does not recognise decodes to StatusUnknown.
type JobStatus string

const (
	StatusProcessing JobStatus = "processing"
	StatusAnalyzing  JobStatus = "analyzing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusUnknown    JobStatus = "unknown"
)

// ParseJobStatus maps a wire value to a JobStatus. Unrecognised values
// (including the empty string) return StatusUnknown and false.
func ParseJobStatus(s string) (JobStatus, bool) {
	switch JobStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusProcessing:
		return StatusProcessing, true
	case StatusAnalyzing:
		return StatusAnalyzing, true
	case StatusCompleted:
		return StatusCompleted, true
	case StatusFailed:
		return StatusFailed, true
	default:
		return StatusUnknown, false
	}
}

// IsTerminal reports whether no further automatic polling should happen.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed:
		return true
	case StatusProcessing, StatusAnalyzing, StatusUnknown:
		return false
	default:
		return false
	}
}

// InFlight reports whether the job is still being worked on server-side.
// Unknown statuses count as in flight so the poller keeps checking.
func (s JobStatus) InFlight() bool {
	return !s.IsTerminal()
}

func (s JobStatus) String() string { return string(s) }

// AnalysisStatus is the sub-status of the comparative analysis artifact.
type AnalysisStatus string

const (
	AnalysisPending   AnalysisStatus = "pending"
	AnalysisAnalyzing AnalysisStatus = "analyzing"
	AnalysisCompleted AnalysisStatus = "completed"
)

// ParseAnalysisStatus maps a wire value to an AnalysisStatus; anything
// unrecognised is treated as pending.
func ParseAnalysisStatus(s string) AnalysisStatus {
	switch AnalysisStatus(strings.ToLower(strings.TrimSpace(s))) {
	case AnalysisAnalyzing:
		return AnalysisAnalyzing
	case AnalysisCompleted:
		return AnalysisCompleted
	default:
		return AnalysisPending
	}
}

// Timestamp accepts RFC 3339 as well as the zone-less ISO-8601 form the
// API emits ("2025-03-01T12:34:56.123456"), which is read as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp parses s with the layouts the API is known to produce.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// MarshalJSON writes the timestamp as RFC 3339, or null when zero.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}

// UnmarshalJSON reads a string timestamp; null and "" leave it zero.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalYAML writes the timestamp as RFC 3339.
func (t Timestamp) MarshalYAML() (any, error) {
	if t.IsZero() {
		return "", nil
	}
	return t.Format(time.RFC3339), nil
}

// QueryJob is one submitted search request as reported by the API.
type QueryJob struct {
	ID         string    `json:"id" yaml:"id"`
	Query      string    `json:"query" yaml:"query"`
	NumResults int       `json:"num_results,omitempty" yaml:"num_results,omitempty"`
	Provider   string    `json:"provider" yaml:"provider"`
	FullText   bool      `json:"full_text,omitempty" yaml:"full_text,omitempty"`
	SortByDate bool      `json:"sort_by_date,omitempty" yaml:"sort_by_date,omitempty"`
	Status     JobStatus `json:"status" yaml:"status"`
	NumPapers  int       `json:"num_papers" yaml:"num_papers"`
	Timestamp  Timestamp `json:"timestamp" yaml:"timestamp"`

	// RawStatus is the status string exactly as received. It differs from
	// Status only when the server sent a value outside the known set.
	RawStatus string `json:"-" yaml:"-"`
}

// UnmarshalJSON decodes a job and normalises its status.
func (q *QueryJob) UnmarshalJSON(data []byte) error {
	type alias QueryJob
	var wire struct {
		alias
		Status string `json:"status"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*q = QueryJob(wire.alias)
	q.RawStatus = wire.Status
	q.Status, _ = ParseJobStatus(wire.Status)
	return nil
}

// DisplayStatus returns the raw status for unknown values so the viewer
// sees what the server actually said.
func (q QueryJob) DisplayStatus() string {
	if q.Status == StatusUnknown && q.RawStatus != "" {
		return q.RawStatus
	}
	return string(q.Status)
}

// Summary is one generated paper summary belonging to a Query Job.
type Summary struct {
	ID              string `json:"id" yaml:"id"`
	QueryID         string `json:"query_id,omitempty" yaml:"query_id,omitempty"`
	Title           string `json:"title" yaml:"title"`
	Authors         string `json:"authors" yaml:"authors"`
	PublicationDate string `json:"publication_date,omitempty" yaml:"publication_date,omitempty"`
	ArxivID         string `json:"arxiv_id,omitempty" yaml:"arxiv_id,omitempty"`
	Content         string `json:"content" yaml:"content"`
}

// Analysis is the comparative analysis artifact of a Query Job.
type Analysis struct {
	Status  AnalysisStatus `json:"status" yaml:"status"`
	Content string         `json:"content,omitempty" yaml:"content,omitempty"`
}

// UnmarshalJSON decodes an analysis and normalises its status.
func (a *Analysis) UnmarshalJSON(data []byte) error {
	var wire struct {
		Status  string  `json:"status"`
		Content *string `json:"content"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	a.Status = ParseAnalysisStatus(wire.Status)
	a.Content = ""
	if wire.Content != nil {
		a.Content = *wire.Content
	}
	return nil
}

// Provider values accepted by the API.
const (
	ProviderDeepSeek  = "deepseek"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Providers lists the selectable summarization providers in display order.
var Providers = []string{ProviderDeepSeek, ProviderAnthropic, ProviderOpenAI}

// Search request limits.
const (
	DefaultNumResults = 3
	MinNumResults     = 1
	MaxNumResults     = 20
)

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Query      string `json:"query" validate:"required,notblank,max=500"`
	NumResults int    `json:"num_results" validate:"min=1,max=20"`
	SortByDate bool   `json:"sort_by_date"`
	Provider   string `json:"provider" validate:"oneof=deepseek anthropic openai"`
	FullText   bool   `json:"full_text"`
}

// NewSearchRequest returns a request with the API's defaults.
func NewSearchRequest(query string) SearchRequest {
	return SearchRequest{
		Query:      query,
		NumResults: DefaultNumResults,
		Provider:   ProviderDeepSeek,
		FullText:   true,
	}
}

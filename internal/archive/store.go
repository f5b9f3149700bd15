// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive keeps completed searches in a local SQLite database so
// their summaries and analysis stay readable after the server forgets them,
// and renders them as portable reports.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/research-summarizer/pkg/types"
)

const (
	dbFile            = "archive.db"
	defaultMaxResults = 20

	// Fixed width so stored times sort lexically.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

var (
	// ErrNotFound is returned for an id the archive does not hold.
	ErrNotFound = errors.New("report not found in archive")

	// ErrNotCompleted is returned when saving a job that has not finished.
	ErrNotCompleted = errors.New("only completed searches can be archived")
)

// Report is everything known about one finished search.
type Report struct {
	Job       types.QueryJob  `json:"job" yaml:"job"`
	Summaries []types.Summary `json:"summaries" yaml:"summaries"`
	Analysis  types.Analysis  `json:"analysis" yaml:"analysis"`
	SavedAt   time.Time       `json:"saved_at" yaml:"saved_at"`
}

// Entry is one row of List.
type Entry struct {
	ID          string    `json:"id" yaml:"id"`
	Query       string    `json:"query" yaml:"query"`
	Provider    string    `json:"provider" yaml:"provider"`
	NumPapers   int       `json:"num_papers" yaml:"num_papers"`
	Summaries   int       `json:"summaries" yaml:"summaries"`
	HasAnalysis bool      `json:"has_analysis" yaml:"has_analysis"`
	SavedAt     time.Time `json:"saved_at" yaml:"saved_at"`
}

// Hit is one full-text match inside an archived summary.
type Hit struct {
	ReportID  string  `json:"report_id" yaml:"report_id"`
	Query     string  `json:"query" yaml:"query"`
	SummaryID string  `json:"summary_id" yaml:"summary_id"`
	Title     string  `json:"title" yaml:"title"`
	Snippet   string  `json:"snippet" yaml:"snippet"`
	Rank      float64 `json:"rank" yaml:"rank"`
}

// Store is the archive database.
type Store struct {
	db         *sql.DB
	maxResults int
	now        func() time.Time
}

// Open opens or creates cfg.Dir/archive.db and its schema.
func Open(cfg types.ArchiveConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}

	dbPath := filepath.Join(cfg.Dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	s := &Store{db: db, maxResults: maxResults, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS queries (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			provider TEXT,
			status TEXT,
			num_papers INTEGER,
			timestamp TEXT,
			analysis_status TEXT,
			analysis TEXT,
			saved_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS summaries (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL,
			query_id TEXT NOT NULL REFERENCES queries(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			title TEXT,
			authors TEXT,
			publication_date TEXT,
			arxiv_id TEXT,
			content TEXT,
			UNIQUE(query_id, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_summaries_query_id ON summaries(query_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='summaries_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists > 0 {
		return nil
	}

	ftsStatements := []string{
		`CREATE VIRTUAL TABLE summaries_fts USING fts5(title, content, content=summaries, content_rowid=rowid)`,
		`CREATE TRIGGER summaries_ai AFTER INSERT ON summaries BEGIN
			INSERT INTO summaries_fts(rowid, title, content) VALUES (new.rowid, new.title, new.content);
		END`,
		`CREATE TRIGGER summaries_ad AFTER DELETE ON summaries BEGIN
			INSERT INTO summaries_fts(summaries_fts, rowid, title, content) VALUES('delete', old.rowid, old.title, old.content);
		END`,
		`CREATE TRIGGER summaries_au AFTER UPDATE ON summaries BEGIN
			INSERT INTO summaries_fts(summaries_fts, rowid, title, content) VALUES('delete', old.rowid, old.title, old.content);
			INSERT INTO summaries_fts(rowid, title, content) VALUES (new.rowid, new.title, new.content);
		END`,
	}
	for _, stmt := range ftsStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating FTS infrastructure: %w", err)
		}
	}
	return nil
}

// Save stores r, replacing any earlier copy of the same job.
func (s *Store) Save(ctx context.Context, r Report) error {
	if r.Job.ID == "" {
		return errors.New("archiving report: job id is empty")
	}
	if r.Job.Status != types.StatusCompleted {
		return fmt.Errorf("archiving %s (status %s): %w", r.Job.ID, r.Job.DisplayStatus(), ErrNotCompleted)
	}
	if r.SavedAt.IsZero() {
		r.SavedAt = s.now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO queries (id, query, provider, status, num_papers, timestamp, analysis_status, analysis, saved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			query=excluded.query, provider=excluded.provider, status=excluded.status,
			num_papers=excluded.num_papers, timestamp=excluded.timestamp,
			analysis_status=excluded.analysis_status, analysis=excluded.analysis,
			saved_at=excluded.saved_at`,
		r.Job.ID, r.Job.Query, r.Job.Provider, string(r.Job.Status), r.Job.NumPapers,
		formatTime(r.Job.Timestamp.Time), string(r.Analysis.Status), r.Analysis.Content,
		formatTime(r.SavedAt),
	)
	if err != nil {
		return fmt.Errorf("upserting query: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM summaries WHERE query_id = ?`, r.Job.ID); err != nil {
		return fmt.Errorf("deleting old summaries: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO summaries (id, query_id, position, title, authors, publication_date, arxiv_id, content)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, sum := range r.Summaries {
		id := sum.ID
		if id == "" {
			id = fmt.Sprintf("%s-%d", r.Job.ID, i+1)
		}
		if _, err := stmt.ExecContext(ctx, id, r.Job.ID, i,
			sum.Title, sum.Authors, sum.PublicationDate, sum.ArxivID, sum.Content); err != nil {
			return fmt.Errorf("inserting summary %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// Get loads one archived report.
func (s *Store) Get(ctx context.Context, id string) (Report, error) {
	var (
		r                       Report
		provider, status, ts    sql.NullString
		analysisStatus, content sql.NullString
		numPapers               sql.NullInt64
		savedAt                 string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, query, provider, status, num_papers, timestamp, analysis_status, analysis, saved_at
		 FROM queries WHERE id = ?`, id,
	).Scan(&r.Job.ID, &r.Job.Query, &provider, &status, &numPapers, &ts, &analysisStatus, &content, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Report{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Report{}, fmt.Errorf("looking up report: %w", err)
	}

	r.Job.Provider = provider.String
	r.Job.Status, _ = types.ParseJobStatus(status.String)
	r.Job.RawStatus = status.String
	r.Job.NumPapers = int(numPapers.Int64)
	r.Job.Timestamp = types.Timestamp{Time: parseTime(ts.String)}
	r.Analysis = types.Analysis{Status: types.ParseAnalysisStatus(analysisStatus.String), Content: content.String}
	r.SavedAt = parseTime(savedAt)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, authors, publication_date, arxiv_id, content
		 FROM summaries WHERE query_id = ? ORDER BY position`, id)
	if err != nil {
		return Report{}, fmt.Errorf("querying summaries: %w", err)
	}
	defer rows.Close()

	r.Summaries = []types.Summary{}
	for rows.Next() {
		var (
			sum                              types.Summary
			title, authors, date, arxiv, txt sql.NullString
		)
		if err := rows.Scan(&sum.ID, &title, &authors, &date, &arxiv, &txt); err != nil {
			return Report{}, fmt.Errorf("scanning summary: %w", err)
		}
		sum.QueryID = id
		sum.Title, sum.Authors, sum.PublicationDate = title.String, authors.String, date.String
		sum.ArxivID, sum.Content = arxiv.String, txt.String
		r.Summaries = append(r.Summaries, sum)
	}
	return r, rows.Err()
}

// List returns all archived searches, most recently saved first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT q.id, q.query, q.provider, q.num_papers, q.analysis_status, q.saved_at,
			(SELECT count(*) FROM summaries s WHERE s.query_id = q.id)
		 FROM queries q ORDER BY q.saved_at DESC, q.id`)
	if err != nil {
		return nil, fmt.Errorf("listing archive: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                        Entry
			provider, analysisStatus sql.NullString
			numPapers                sql.NullInt64
			savedAt                  string
		)
		if err := rows.Scan(&e.ID, &e.Query, &provider, &numPapers, &analysisStatus, &savedAt, &e.Summaries); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		e.Provider = provider.String
		e.NumPapers = int(numPapers.Int64)
		e.HasAnalysis = types.ParseAnalysisStatus(analysisStatus.String) == types.AnalysisCompleted
		e.SavedAt = parseTime(savedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Search runs a full-text query over summary titles and content. Results
// are ranked by relevance. limit <= 0 uses the configured default.
func (s *Store) Search(ctx context.Context, text string, limit int) ([]Hit, error) {
	match := ftsQuery(text)
	if match == "" {
		return nil, errors.New("search text is empty")
	}
	if limit <= 0 {
		limit = s.maxResults
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT s.query_id, q.query, s.id, s.title,
			snippet(summaries_fts, 1, '[', ']', '…', 12), summaries_fts.rank
		 FROM summaries_fts
		 JOIN summaries s ON s.rowid = summaries_fts.rowid
		 JOIN queries q ON q.id = s.query_id
		 WHERE summaries_fts MATCH ?
		 ORDER BY summaries_fts.rank
		 LIMIT ?`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("searching archive: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var (
			h     Hit
			title sql.NullString
		)
		if err := rows.Scan(&h.ReportID, &h.Query, &h.SummaryID, &title, &h.Snippet, &h.Rank); err != nil {
			return nil, fmt.Errorf("scanning hit: %w", err)
		}
		h.Title = title.String
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// Delete removes an archived report and its summaries.
func (s *Store) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM summaries WHERE query_id = ?`, id); err != nil {
		return fmt.Errorf("deleting summaries: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM queries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting report: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return tx.Commit()
}

// ftsQuery turns free text into an FTS5 query that matches every word,
// quoting each so punctuation in user input is not parsed as syntax.
func ftsQuery(text string) string {
	words := strings.Fields(text)
	for i, w := range words {
		words[i] = `"` + strings.ReplaceAll(w, `"`, `""`) + `"`
	}
	return strings.Join(words, " ")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

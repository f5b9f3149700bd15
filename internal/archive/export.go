// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-summarizer/pkg/types"
)

// Format selects a report encoding.
type Format string

const (
	FormatYAML     Format = "yaml"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// Formats lists the supported export formats.
var Formats = []Format{FormatYAML, FormatJSON, FormatMarkdown, FormatHTML}

// ParseFormat accepts a format name or a common file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("unknown export format %q (want yaml, json, markdown or html)", s)
}

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify),
)

// WriteReport encodes r to w in the given format.
func WriteReport(w io.Writer, r Report, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		return nil
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(r))
		return err
	case FormatHTML:
		return writeHTML(w, r)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

// Markdown renders r as a single markdown document. Summary headings are
// demoted so each summary nests under the report's own sections.
func Markdown(r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", r.Job.Query)
	fmt.Fprintf(&b, "- Provider: %s\n", r.Job.Provider)
	fmt.Fprintf(&b, "- Papers: %d\n", len(r.Summaries))
	if !r.Job.Timestamp.IsZero() {
		fmt.Fprintf(&b, "- Searched: %s\n", r.Job.Timestamp.Format("2006-01-02 15:04"))
	}
	b.WriteString("\n## Summaries\n")

	for i, s := range r.Summaries {
		fmt.Fprintf(&b, "\n### %d. %s\n\n", i+1, s.Title)
		meta := []string{}
		if s.Authors != "" {
			meta = append(meta, s.Authors)
		}
		if s.PublicationDate != "" {
			meta = append(meta, s.PublicationDate)
		}
		if s.ArxivID != "" {
			meta = append(meta, fmt.Sprintf("[arXiv:%s](https://arxiv.org/abs/%s)", s.ArxivID, s.ArxivID))
		}
		if len(meta) > 0 {
			fmt.Fprintf(&b, "*%s*\n\n", strings.Join(meta, " · "))
		}
		b.WriteString(demoteHeadings(strings.TrimSpace(s.Content), 3))
		b.WriteString("\n")
	}

	if r.Analysis.Status == types.AnalysisCompleted && strings.TrimSpace(r.Analysis.Content) != "" {
		b.WriteString("\n## Comparative Analysis\n\n")
		b.WriteString(demoteHeadings(strings.TrimSpace(r.Analysis.Content), 2))
		b.WriteString("\n")
	}
	return b.String()
}

func writeHTML(w io.Writer, r Report) error {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(Markdown(r)), &body); err != nil {
		return fmt.Errorf("rendering markdown: %w", err)
	}
	_, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
</head>
<body>
%s</body>
</html>
`, html.EscapeString(r.Job.Query), body.String())
	return err
}

// demoteHeadings pushes ATX headings down by n levels, capping at h6.
// Fenced code blocks are left alone.
func demoteHeadings(md string, n int) string {
	lines := strings.Split(md, "\n")
	inFence := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence || !strings.HasPrefix(line, "#") {
			continue
		}
		level := len(line) - len(strings.TrimLeft(line, "#"))
		rest := line[level:]
		if level > 6 || (rest != "" && rest[0] != ' ') {
			continue
		}
		lines[i] = strings.Repeat("#", min(level+n, 6)) + rest
	}
	return strings.Join(lines, "\n")
}

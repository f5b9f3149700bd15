// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package devserver

import (
	"fmt"
	"strings"

	"github.com/pdiddy/research-summarizer/pkg/types"
)

var fakeAuthors = []string{
	"Ada Lovelace, Charles Babbage",
	"Grace Hopper",
	"Alan Turing, Alonzo Church",
	"Barbara Liskov",
	"Edsger W. Dijkstra",
}

func fakeSummaries(j *job) []types.Summary {
	out := make([]types.Summary, 0, j.NumResults)
	for i := 1; i <= j.NumResults; i++ {
		title := fmt.Sprintf("%s: Study %d", titleCase(j.Query), i)
		out = append(out, types.Summary{
			ID:              fmt.Sprintf("%s-%d", j.id, i),
			QueryID:         j.id,
			Title:           title,
			Authors:         fakeAuthors[(i-1)%len(fakeAuthors)],
			PublicationDate: j.createdAt.AddDate(0, -i, 0).Format("2006-01-02"),
			ArxivID:         fmt.Sprintf("%s.%05d", j.createdAt.Format("0601"), i),
			Content: fmt.Sprintf("# %s\n\n## Key findings\n\n- Finding %d about %s.\n"+
				"- Summarized by %s with full text %t.\n\n## Methods\n\nSimulated paper.\n",
				title, i, j.Query, j.Provider, j.FullText),
		})
	}
	return out
}

func comparativeAnalysis(j *job) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Comparative Analysis: %s\n\n", titleCase(j.Query))
	b.WriteString("| Paper | Authors | Focus |\n|---|---|---|\n")
	for _, s := range j.summaries {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", s.Title, s.Authors, s.ArxivID)
	}
	fmt.Fprintf(&b, "\n## Synthesis\n\nThe %d papers agree on the fundamentals of %s.\n", len(j.summaries), j.Query)
	return b.String()
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

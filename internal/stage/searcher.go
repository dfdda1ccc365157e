package stage

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/dyluth/videoscout/internal/collab"
	"github.com/dyluth/videoscout/internal/jsonx"
	"github.com/dyluth/videoscout/pkg/blackboard"
)

// Searcher executes the planner's queries against the video search provider
// and, when configured, a web text search provider.
type Searcher struct {
	videos collab.VideoSearcher
	text   collab.TextSearcher // optional, may be nil
	logger *log.Logger
}

// NewSearcher creates the searcher stage. text may be nil to disable web
// text search.
func NewSearcher(videos collab.VideoSearcher, text collab.TextSearcher, logger *log.Logger) *Searcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Searcher{videos: videos, text: text, logger: logger}
}

func (s *Searcher) Name() string { return "searcher" }

// Run executes every current query, deduplicates video candidates by
// resolved video id (first occurrence wins) and text snippets by exact
// string equality. Executed queries are always appended to the history, even
// when every provider call fails or returns nothing.
func (s *Searcher) Run(ctx context.Context, snap *blackboard.Blackboard) (blackboard.Update, error) {
	queries := snap.CurrentSearchQueries
	if len(queries) == 0 {
		s.logger.Printf("[Searcher] no queries to execute")
		return blackboard.Update{
			blackboard.FieldRawCandidates: []blackboard.Candidate{},
		}, nil
	}

	var candidates []blackboard.Candidate
	var snippets []string

	for _, query := range queries {
		// Quotes break some video search scrapers.
		clean := strings.ReplaceAll(query, `"`, "")

		hits, err := s.videos.SearchVideos(ctx, clean)
		if err != nil {
			s.logger.Printf("[Searcher] video search failed for %q: %v", clean, err)
		}
		for _, hit := range hits {
			if hit.Link == "" {
				continue
			}
			candidates = append(candidates, blackboard.Candidate{
				ID:       jsonx.ExtractVideoID(hit.Link),
				Title:    hit.Title,
				Link:     hit.Link,
				Snippet:  hit.Snippet,
				Duration: hit.Duration,
			})
		}

		if s.text == nil {
			continue
		}
		textHits, err := s.text.SearchText(ctx, query)
		if err != nil {
			s.logger.Printf("[Searcher] text search failed for %q: %v", query, err)
			continue
		}
		for _, hit := range textHits {
			snippets = append(snippets, fmt.Sprintf("Source: %s (%s)\nContent: %s", hit.Title, hit.URL, hit.Content))
		}
	}

	unique := dedupCandidates(candidates)
	s.logger.Printf("[Searcher] %d queries -> %d unique video candidates, %d text snippets",
		len(queries), len(unique), len(snippets))

	return blackboard.Update{
		blackboard.FieldRawCandidates:     unique,
		blackboard.FieldTextSearchContext: dedupStrings(snippets),
		blackboard.FieldTriedQueries:      queries,
	}, nil
}

// dedupCandidates keeps the first candidate per resolved video id. URLs for
// the same video differ by query parameters, so the id is the dedup key.
func dedupCandidates(in []blackboard.Candidate) []blackboard.Candidate {
	seen := make(map[string]bool, len(in))
	out := make([]blackboard.Candidate, 0, len(in))
	for _, c := range in {
		if c.ID == "" || seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out
}

func dedupStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

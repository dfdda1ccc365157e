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

const selectorPrompt = `User query: %s

Below are candidate videos found by search. Pick the at most %d most relevant
ones. Respond with a JSON array of candidate indices, best first, e.g. [0, 3].

%s`

// Selector ranks the raw search candidates against the user query and admits
// up to topK of them into the video store.
type Selector struct {
	model  collab.ModelClient
	topK   int
	logger *log.Logger
}

// NewSelector creates the selector stage.
func NewSelector(model collab.ModelClient, topK int, logger *log.Logger) *Selector {
	if logger == nil {
		logger = log.Default()
	}
	return &Selector{model: model, topK: topK, logger: logger}
}

func (s *Selector) Name() string { return "selector" }

// Run asks the model to rank the raw candidates and marks the picked ones as
// candidates in the store. On ranking failure it falls back to the first
// topK candidates in input order. Resources already watched or verified keep
// their status even when rediscovered.
func (s *Selector) Run(ctx context.Context, snap *blackboard.Blackboard) (blackboard.Update, error) {
	metrics := snap.Metrics.Clone()
	store := blackboard.CloneStore(snap.VideoStore)

	if len(snap.RawCandidates) == 0 {
		s.logger.Printf("[Selector] no candidates to select from")
		return blackboard.Update{blackboard.FieldVideoStore: store}, nil
	}

	picked := s.rank(ctx, snap, &metrics)

	var newIDs []string
	for i, cand := range picked {
		id := cand.ID
		if id == "" {
			id = jsonx.ExtractVideoID(cand.Link)
		}
		if id == "" {
			id = fmt.Sprintf("vid_%d", i)
		}

		existing, ok := store[id]
		if !ok {
			store[id] = &blackboard.VideoResource{
				VideoID:  id,
				Title:    cand.Title,
				URL:      cand.Link,
				Duration: cand.Duration,
				Status:   blackboard.StatusCandidate,
			}
			newIDs = append(newIDs, id)
			continue
		}
		// Watched and verified resources are settled; everything else is
		// re-queued for inspection.
		if existing.Status != blackboard.StatusWatched && existing.Status != blackboard.StatusVerified {
			existing.Status = blackboard.StatusCandidate
		}
	}

	s.logger.Printf("[Selector] admitted %d videos (%d new)", len(picked), len(newIDs))

	return blackboard.Update{
		blackboard.FieldVideoStore:      store,
		blackboard.FieldVisitedVideoIDs: newIDs,
		blackboard.FieldMetrics:         metrics,
	}, nil
}

// rank returns up to topK candidates, model-ranked when possible, in input
// order otherwise.
func (s *Selector) rank(ctx context.Context, snap *blackboard.Blackboard, metrics *blackboard.Metrics) []blackboard.Candidate {
	candidates := snap.RawCandidates

	resp, err := s.model.Invoke(ctx, "", []collab.Part{
		collab.TextPart(fmt.Sprintf(selectorPrompt, snap.UserQuery, s.topK, formatCandidates(candidates))),
	})
	if err != nil {
		s.logger.Printf("[Selector] ranking failed: %v, falling back to first %d", err, s.topK)
		return firstK(candidates, s.topK)
	}
	metrics.AddTokens("selector", resp.Usage.InputTokens, resp.Usage.OutputTokens, resp.Usage.TotalTokens)

	var indices []int
	if err := jsonx.ExtractInto(resp.Content, &indices); err != nil {
		s.logger.Printf("[Selector] could not parse ranking: %v, falling back to first %d", err, s.topK)
		return firstK(candidates, s.topK)
	}

	var picked []blackboard.Candidate
	for _, idx := range indices {
		if idx < 0 || idx >= len(candidates) {
			continue
		}
		picked = append(picked, candidates[idx])
		if len(picked) >= s.topK {
			break
		}
	}
	if len(picked) == 0 {
		return firstK(candidates, s.topK)
	}
	return picked
}

func firstK(candidates []blackboard.Candidate, k int) []blackboard.Candidate {
	if len(candidates) <= k {
		return candidates
	}
	return candidates[:k]
}

func formatCandidates(candidates []blackboard.Candidate) string {
	var b strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&b, "[%d] Title: %s\n    Description: %s\n    URL: %s\n\n", i, c.Title, c.Snippet, c.Link)
	}
	return b.String()
}

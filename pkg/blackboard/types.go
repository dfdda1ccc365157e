package blackboard

import "fmt"

// Status is the lifecycle state of a VideoResource on the blackboard.
//
// Status only moves forward: candidate -> analyzing/watched -> verified,
// with rejected reachable only from candidate or analyzing. Once a resource
// is watched or verified it is never demoted back to candidate, even if a
// later search round rediscovers the same video id.
type Status string

const (
	// StatusCandidate marks a video selected from raw search results but
	// not yet inspected.
	StatusCandidate Status = "candidate"

	// StatusAnalyzing marks a video currently under inspection.
	StatusAnalyzing Status = "analyzing"

	// StatusWatched marks a video whose content was extracted but not yet
	// confirmed against the query.
	StatusWatched Status = "watched"

	// StatusVerified marks a video whose analysis is complete. Absence of
	// findings lives in the summary content, not in the status.
	StatusVerified Status = "verified"

	// StatusRejected marks a video discarded as irrelevant.
	StatusRejected Status = "rejected"
)

// Validate checks if the Status is a valid enum value.
func (s Status) Validate() error {
	switch s {
	case StatusCandidate, StatusAnalyzing, StatusWatched, StatusVerified, StatusRejected:
		return nil
	default:
		return fmt.Errorf("unknown video status: %q", s)
	}
}

// CanTransition reports whether moving from s to the target status preserves
// the monotonic lifecycle.
func (s Status) CanTransition(to Status) bool {
	if s == to {
		return true
	}
	switch to {
	case StatusCandidate:
		return false
	case StatusAnalyzing, StatusWatched:
		return s == StatusCandidate
	case StatusVerified:
		return s == StatusCandidate || s == StatusAnalyzing || s == StatusWatched
	case StatusRejected:
		return s == StatusCandidate || s == StatusAnalyzing
	default:
		return false
	}
}

// Routing signal values written by the checker stage and consumed by the
// checker routing function. Anything else is treated as "continue the loop".
const (
	SignalPlanner = "planner"
	SignalAnalyst = "analyst"
	SignalAskUser = "ask_user"
)

// EvidenceFragment is a single piece of evidence extracted from a video.
// Fragments are immutable once created and are only ever appended to a
// resource's evidence list.
type EvidenceFragment struct {
	Source         string  `json:"source"` // "transcript" or "visual"
	Content        string  `json:"content"`
	TimestampStart string  `json:"timestamp_start,omitempty"`
	TimestampEnd   string  `json:"timestamp_end,omitempty"`
	Confidence     float64 `json:"confidence"` // in [0,1]
}

// VideoResource is a discovered video and its accumulated evidence.
// Identity is the video id, which is stable across re-discovery even when
// the URL differs by query parameters. The blackboard exclusively owns all
// resources; stages work on snapshots and return a replacement store.
type VideoResource struct {
	VideoID         string             `json:"video_id"`
	Title           string             `json:"title"`
	URL             string             `json:"url"`
	Duration        string             `json:"duration"`
	Status          Status             `json:"status"`
	RelevanceReason string             `json:"relevance_reason,omitempty"`
	Evidence        []EvidenceFragment `json:"evidence,omitempty"`
	Summary         string             `json:"summary,omitempty"`
	Transcript      string             `json:"transcript,omitempty"`
}

// SetStatus transitions the resource to the target status, enforcing the
// monotonic lifecycle. Returns an error for a demoting transition.
func (v *VideoResource) SetStatus(to Status) error {
	if err := to.Validate(); err != nil {
		return err
	}
	if !v.Status.CanTransition(to) {
		return fmt.Errorf("video %s: illegal status transition %s -> %s", v.VideoID, v.Status, to)
	}
	v.Status = to
	return nil
}

// Clone returns a deep copy of the resource.
func (v *VideoResource) Clone() *VideoResource {
	if v == nil {
		return nil
	}
	c := *v
	if v.Evidence != nil {
		c.Evidence = make([]EvidenceFragment, len(v.Evidence))
		copy(c.Evidence, v.Evidence)
	}
	return &c
}

// Candidate is a raw, unfiltered video search result. Candidates live in the
// scratch area of the blackboard and are replaced wholesale each round.
type Candidate struct {
	ID       string `json:"id,omitempty"` // resolved video id, set by the searcher
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet,omitempty"`
	Duration string `json:"duration,omitempty"`
}

// Blackboard is the versioned document carrying all accumulated knowledge
// and control signals for one research session.
type Blackboard struct {
	// Global context.
	UserQuery   string   `json:"user_query"`
	Constraints []string `json:"constraints,omitempty"`

	// Accumulated knowledge, keyed by video id.
	VideoStore map[string]*VideoResource `json:"video_store"`

	// Scratch fields, replaced wholesale on each update.
	CurrentSearchQueries []string    `json:"current_search_queries,omitempty"`
	VisualHypothesis     string      `json:"visual_hypothesis,omitempty"`
	RawCandidates        []Candidate `json:"raw_candidates,omitempty"`
	AmbiguityNote        string      `json:"ambiguity_note,omitempty"`

	// Execution history, append-only within a session.
	TriedQueries      []string `json:"tried_queries,omitempty"`
	VisitedVideoIDs   []string `json:"visited_video_ids,omitempty"`
	TextSearchContext []string `json:"text_search_context,omitempty"`
	PlanTrace         []string `json:"plan_trace,omitempty"`

	// Control.
	LoopStep      int    `json:"loop_step"`
	FinalAnswer   string `json:"final_answer,omitempty"`
	RoutingSignal string `json:"routing_signal"`

	Metrics Metrics `json:"metrics"`
}

// New creates a fresh blackboard for the given user query.
func New(userQuery string) *Blackboard {
	return &Blackboard{
		UserQuery:     userQuery,
		VideoStore:    make(map[string]*VideoResource),
		RoutingSignal: SignalPlanner,
		Metrics:       NewMetrics(),
	}
}

// Clone returns a deep copy of the blackboard. Stages receive clones so that
// collaborator calls can never mutate the engine's authoritative copy.
func (b *Blackboard) Clone() *Blackboard {
	c := *b
	c.Constraints = cloneStrings(b.Constraints)
	c.CurrentSearchQueries = cloneStrings(b.CurrentSearchQueries)
	c.TriedQueries = cloneStrings(b.TriedQueries)
	c.VisitedVideoIDs = cloneStrings(b.VisitedVideoIDs)
	c.TextSearchContext = cloneStrings(b.TextSearchContext)
	c.PlanTrace = cloneStrings(b.PlanTrace)
	if b.RawCandidates != nil {
		c.RawCandidates = make([]Candidate, len(b.RawCandidates))
		copy(c.RawCandidates, b.RawCandidates)
	}
	c.VideoStore = CloneStore(b.VideoStore)
	c.Metrics = b.Metrics.Clone()
	return &c
}

// CloneStore deep-copies a video store map.
func CloneStore(store map[string]*VideoResource) map[string]*VideoResource {
	out := make(map[string]*VideoResource, len(store))
	for id, res := range store {
		out[id] = res.Clone()
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

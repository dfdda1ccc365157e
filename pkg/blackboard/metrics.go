package blackboard

// Metrics holds numeric counters for a session, split into session-wide
// counters and per-category sub-maps (one category per model-calling stage).
//
// Merging is a two-level shallow overwrite: same-key counters are replaced by
// the incoming value, so a stage that wants accumulation must pre-add onto
// the counters it read from its snapshot (see AddTokens).
type Metrics struct {
	Counters   map[string]int64            `json:"counters,omitempty"`
	Categories map[string]map[string]int64 `json:"categories,omitempty"`
}

// NewMetrics returns an empty metrics record with initialized maps.
func NewMetrics() Metrics {
	return Metrics{
		Counters:   make(map[string]int64),
		Categories: make(map[string]map[string]int64),
	}
}

// Clone returns a deep copy of the metrics record.
func (m Metrics) Clone() Metrics {
	c := NewMetrics()
	for k, v := range m.Counters {
		c.Counters[k] = v
	}
	for cat, counters := range m.Categories {
		sub := make(map[string]int64, len(counters))
		for k, v := range counters {
			sub[k] = v
		}
		c.Categories[cat] = sub
	}
	return c
}

// Merge folds other into a copy of m. Top-level counters are overwritten by
// key; category sub-maps are merged the same way, so categories absent from
// other are left intact.
func (m Metrics) Merge(other Metrics) Metrics {
	out := m.Clone()
	for k, v := range other.Counters {
		out.Counters[k] = v
	}
	for cat, counters := range other.Categories {
		sub, ok := out.Categories[cat]
		if !ok {
			sub = make(map[string]int64, len(counters))
			out.Categories[cat] = sub
		}
		for k, v := range counters {
			sub[k] = v
		}
	}
	return out
}

// AddTokens accumulates token usage into the session-wide counters and, when
// category is non-empty, into that category's sub-map as well.
func (m *Metrics) AddTokens(category string, input, output, total int64) {
	if m.Counters == nil {
		m.Counters = make(map[string]int64)
	}
	m.Counters["input_tokens"] += input
	m.Counters["output_tokens"] += output
	m.Counters["total_tokens"] += total

	if category == "" {
		return
	}
	if m.Categories == nil {
		m.Categories = make(map[string]map[string]int64)
	}
	sub, ok := m.Categories[category]
	if !ok {
		sub = make(map[string]int64)
		m.Categories[category] = sub
	}
	sub["input_tokens"] += input
	sub["output_tokens"] += output
	sub["total_tokens"] += total
}

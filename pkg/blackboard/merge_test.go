package blackboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyReplaceFields(t *testing.T) {
	bb := New("query")

	t.Run("replaces scratch fields wholesale", func(t *testing.T) {
		next, err := Apply(bb, Update{
			FieldCurrentSearchQueries: []string{"a", "b"},
			FieldVisualHypothesis:     "a copper pan",
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, next.CurrentSearchQueries)
		assert.Equal(t, "a copper pan", next.VisualHypothesis)

		next2, err := Apply(next, Update{FieldCurrentSearchQueries: []string{"c"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"c"}, next2.CurrentSearchQueries)
	})

	t.Run("omitted field is left unchanged", func(t *testing.T) {
		next, err := Apply(bb, Update{FieldFinalAnswer: "done"})
		require.NoError(t, err)

		next2, err := Apply(next, Update{FieldLoopStep: 1})
		require.NoError(t, err)
		assert.Equal(t, "done", next2.FinalAnswer)
		assert.Equal(t, 1, next2.LoopStep)
	})

	t.Run("empty update returns an equal board", func(t *testing.T) {
		next, err := Apply(bb, Update{})
		require.NoError(t, err)
		assert.Equal(t, bb, next)
	})
}

func TestApplyAppendFields(t *testing.T) {
	bb := New("query")

	t.Run("concatenates in call order and keeps duplicates", func(t *testing.T) {
		next := bb
		var err error
		for _, q := range []string{"first", "second", "first"} {
			next, err = Apply(next, Update{FieldTriedQueries: []string{q}})
			require.NoError(t, err)
		}
		assert.Equal(t, []string{"first", "second", "first"}, next.TriedQueries)
	})

	t.Run("appends multi-element contributions in order", func(t *testing.T) {
		next, err := Apply(bb, Update{FieldPlanTrace: []string{"t1", "t2"}})
		require.NoError(t, err)
		next, err = Apply(next, Update{FieldPlanTrace: []string{"t3"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"t1", "t2", "t3"}, next.PlanTrace)
	})
}

func TestApplyVideoStore(t *testing.T) {
	bb := New("query")

	store := map[string]*VideoResource{
		"abc123": {VideoID: "abc123", Status: StatusCandidate},
	}
	next, err := Apply(bb, Update{FieldVideoStore: store})
	require.NoError(t, err)
	require.Contains(t, next.VideoStore, "abc123")

	// The merged board owns its own copy of the store.
	store["abc123"].Status = StatusRejected
	assert.Equal(t, StatusCandidate, next.VideoStore["abc123"].Status)
}

func TestApplyMetrics(t *testing.T) {
	bb := New("query")
	bb.Metrics.AddTokens("planner", 10, 5, 15)

	t.Run("unrelated categories accumulate independently", func(t *testing.T) {
		incoming := NewMetrics()
		incoming.Categories["selector"] = map[string]int64{"total_tokens": 7}

		next, err := Apply(bb, Update{FieldMetrics: incoming})
		require.NoError(t, err)
		assert.Equal(t, int64(15), next.Metrics.Categories["planner"]["total_tokens"])
		assert.Equal(t, int64(7), next.Metrics.Categories["selector"]["total_tokens"])
	})

	t.Run("same-key counters are overwritten", func(t *testing.T) {
		incoming := NewMetrics()
		incoming.Counters["total_tokens"] = 99

		next, err := Apply(bb, Update{FieldMetrics: incoming})
		require.NoError(t, err)
		assert.Equal(t, int64(99), next.Metrics.Counters["total_tokens"])
		// Untouched counters survive.
		assert.Equal(t, int64(10), next.Metrics.Counters["input_tokens"])
	})

	t.Run("pre-added snapshot counters accumulate", func(t *testing.T) {
		// The stage pattern: clone the snapshot metrics, add onto them,
		// return the whole record.
		m := bb.Metrics.Clone()
		m.AddTokens("planner", 2, 3, 5)

		next, err := Apply(bb, Update{FieldMetrics: m})
		require.NoError(t, err)
		assert.Equal(t, int64(20), next.Metrics.Counters["total_tokens"])
	})
}

func TestApplyStructuralFailures(t *testing.T) {
	bb := New("query")

	t.Run("unknown field is an error", func(t *testing.T) {
		_, err := Apply(bb, Update{Field("bogus"): "x"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnknownField)
	})

	t.Run("wrong value type is an error", func(t *testing.T) {
		_, err := Apply(bb, Update{FieldLoopStep: "three"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "wrong value type")
	})

	t.Run("current board is never mutated", func(t *testing.T) {
		_, err := Apply(bb, Update{FieldTriedQueries: []string{"q"}})
		require.NoError(t, err)
		assert.Empty(t, bb.TriedQueries)
	})
}

func TestSchemaIsTotal(t *testing.T) {
	table := Schema()
	assert.Len(t, table, 15)
	assert.Equal(t, ReducerAppend, table[FieldTriedQueries])
	assert.Equal(t, ReducerAppend, table[FieldVisitedVideoIDs])
	assert.Equal(t, ReducerAppend, table[FieldTextSearchContext])
	assert.Equal(t, ReducerAppend, table[FieldPlanTrace])
	assert.Equal(t, ReducerMergeCounters, table[FieldMetrics])
	assert.Equal(t, ReducerReplace, table[FieldVideoStore])
}

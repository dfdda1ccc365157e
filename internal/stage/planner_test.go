package stage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/videoscout/pkg/blackboard"
)

func TestPlannerRun(t *testing.T) {
	ctx := context.Background()

	t.Run("parses plan and caps queries", func(t *testing.T) {
		model := &fakeModel{replies: []fakeReply{{
			content: "```json\n{\"thought\": \"try technique names\", \"search_queries\": [\"q1\", \"q2\", \"q3\", \"q4\"]}\n```",
			usage:   usage(15),
		}}}
		planner := NewPlanner(model, 3, testLogger())

		update, err := planner.Run(ctx, blackboard.New("how is sugar coloring made"))
		require.NoError(t, err)

		assert.Equal(t, []string{"q1", "q2", "q3"}, update[blackboard.FieldCurrentSearchQueries])
		assert.Equal(t, []string{"Thought: try technique names"}, update[blackboard.FieldPlanTrace])

		metrics := update[blackboard.FieldMetrics].(blackboard.Metrics)
		assert.Equal(t, int64(15), metrics.Counters["total_tokens"])
		assert.Equal(t, int64(15), metrics.Categories["planner"]["total_tokens"])
	})

	t.Run("parse failure falls back to the raw user query", func(t *testing.T) {
		model := &fakeModel{replies: []fakeReply{{content: "I cannot produce JSON today.", usage: usage(8)}}}
		planner := NewPlanner(model, 3, testLogger())

		update, err := planner.Run(ctx, blackboard.New("how is sugar coloring made"))
		require.NoError(t, err)

		assert.Equal(t, []string{"how is sugar coloring made"}, update[blackboard.FieldCurrentSearchQueries])
		trace := update[blackboard.FieldPlanTrace].([]string)
		require.Len(t, trace, 1)
		assert.Contains(t, trace[0], "falling back")

		// Usage from the failed-parse call is still accounted for.
		metrics := update[blackboard.FieldMetrics].(blackboard.Metrics)
		assert.Equal(t, int64(8), metrics.Counters["total_tokens"])
	})

	t.Run("model outage falls back to the raw user query", func(t *testing.T) {
		planner := NewPlanner(&fakeModel{}, 3, testLogger())

		update, err := planner.Run(ctx, blackboard.New("q"))
		require.NoError(t, err)
		assert.Equal(t, []string{"q"}, update[blackboard.FieldCurrentSearchQueries])
	})

	t.Run("view includes history and knowledge", func(t *testing.T) {
		bb := blackboard.New("goal")
		bb.TriedQueries = []string{"old query"}
		bb.VideoStore["abc"] = &blackboard.VideoResource{
			VideoID: "abc", Title: "Known Video",
			Status: blackboard.StatusVerified, Summary: "covers the technique",
		}

		model := &fakeModel{replies: []fakeReply{{content: `{"thought": "t", "search_queries": ["q"]}`}}}
		planner := NewPlanner(model, 3, testLogger())
		_, err := planner.Run(ctx, bb)
		require.NoError(t, err)

		require.Len(t, model.calls, 1)
		view := model.calls[0][0].Text
		assert.Contains(t, view, "old query")
		assert.Contains(t, view, "Known Video")
		assert.Contains(t, view, "covers the technique")
	})
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/videoscout/internal/checkpoint"
	"github.com/dyluth/videoscout/pkg/blackboard"
)

// fakeStage scripts a stage from a plain function.
type fakeStage struct {
	name string
	run  func(snap *blackboard.Blackboard) (blackboard.Update, error)
}

func (f *fakeStage) Name() string { return f.name }

func (f *fakeStage) Run(ctx context.Context, snap *blackboard.Blackboard) (blackboard.Update, error) {
	if f.run == nil {
		return blackboard.Update{}, nil
	}
	return f.run(snap)
}

func noop(name string) *fakeStage {
	return &fakeStage{name: name}
}

// checkerCapped behaves like the real checker: strict increment plus a hard
// loop cap.
func checkerCapped(maxLoops int) *fakeStage {
	return &fakeStage{name: StageChecker, run: func(snap *blackboard.Blackboard) (blackboard.Update, error) {
		step := snap.LoopStep + 1
		signal := blackboard.SignalPlanner
		if step >= maxLoops {
			signal = blackboard.SignalAnalyst
		}
		return blackboard.Update{
			blackboard.FieldLoopStep:      step,
			blackboard.FieldRoutingSignal: signal,
		}, nil
	}}
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestEngine(t *testing.T, store checkpoint.Store, overrides ...*fakeStage) *Engine {
	stages := map[string]*fakeStage{
		StagePlanner:  noop(StagePlanner),
		StageSearcher: noop(StageSearcher),
		StageSelector: noop(StageSelector),
		StageWatcher:  noop(StageWatcher),
		StageChecker:  checkerCapped(1),
		StageAnalyst: {name: StageAnalyst, run: func(snap *blackboard.Blackboard) (blackboard.Update, error) {
			return blackboard.Update{blackboard.FieldFinalAnswer: "answer"}, nil
		}},
	}
	for _, s := range overrides {
		stages[s.name] = s
	}

	all := make([]Stage, 0, len(stages))
	for _, s := range stages {
		all = append(all, s)
	}
	eng, err := New(store, quietLogger(), all...)
	require.NoError(t, err)
	return eng
}

func stageSequence(events []Event) []string {
	names := make([]string, len(events))
	for i, ev := range events {
		names[i] = ev.Stage
	}
	return names
}

func TestNew(t *testing.T) {
	store := checkpoint.NewMemoryStore()

	t.Run("requires all six stages", func(t *testing.T) {
		_, err := New(store, quietLogger(), noop(StagePlanner))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing stage")
	})

	t.Run("rejects duplicate stages", func(t *testing.T) {
		_, err := New(store, quietLogger(), noop(StagePlanner), noop(StagePlanner))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate stage")
	})

	t.Run("requires a store", func(t *testing.T) {
		_, err := New(nil, quietLogger())
		assert.Error(t, err)
	})
}

func TestRunSingleLoop(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	eng := newTestEngine(t, store)

	var events []Event
	res, err := eng.Run(context.Background(), "t1", "find the video", func(ev Event) {
		events = append(events, ev)
	})
	require.NoError(t, err)

	t.Run("events follow the edge order", func(t *testing.T) {
		assert.Equal(t,
			[]string{StagePlanner, StageSearcher, StageSelector, StageChecker, StageAnalyst},
			stageSequence(events))
	})

	t.Run("run terminates with the analyst's answer", func(t *testing.T) {
		assert.False(t, res.Suspended)
		assert.Equal(t, "answer", res.FinalAnswer())
	})

	t.Run("final checkpoint points at the terminal state", func(t *testing.T) {
		rec, err := store.Load(context.Background(), "t1")
		require.NoError(t, err)
		assert.Equal(t, StageEnd, rec.NextStage)
		assert.Equal(t, "answer", rec.Board.FinalAnswer)
	})
}

func TestRunCyclesThroughPlanner(t *testing.T) {
	// max_loop_steps=2 and a searcher that never finds candidates: the
	// selector routes to checker twice, then the analyst runs.
	store := checkpoint.NewMemoryStore()
	eng := newTestEngine(t, store, checkerCapped(2))

	var events []Event
	var steps []int
	res, err := eng.Run(context.Background(), "t-loop", "q", func(ev Event) {
		events = append(events, ev)
		if ev.Stage == StageChecker {
			steps = append(steps, ev.Update[blackboard.FieldLoopStep].(int))
		}
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		StagePlanner, StageSearcher, StageSelector, StageChecker,
		StagePlanner, StageSearcher, StageSelector, StageChecker,
		StageAnalyst,
	}, stageSequence(events))
	assert.Equal(t, []int{1, 2}, steps)
	assert.Equal(t, 2, res.Board.LoopStep)
}

func TestRunRoutesThroughWatcher(t *testing.T) {
	selector := &fakeStage{name: StageSelector, run: func(snap *blackboard.Blackboard) (blackboard.Update, error) {
		store := blackboard.CloneStore(snap.VideoStore)
		store["abc123"] = &blackboard.VideoResource{VideoID: "abc123", Status: blackboard.StatusCandidate}
		return blackboard.Update{blackboard.FieldVideoStore: store}, nil
	}}
	watcher := &fakeStage{name: StageWatcher, run: func(snap *blackboard.Blackboard) (blackboard.Update, error) {
		store := blackboard.CloneStore(snap.VideoStore)
		require.NoError(t, store["abc123"].SetStatus(blackboard.StatusVerified))
		return blackboard.Update{blackboard.FieldVideoStore: store}, nil
	}}

	store := checkpoint.NewMemoryStore()
	eng := newTestEngine(t, store, selector, watcher)

	var events []Event
	res, err := eng.Run(context.Background(), "t-watch", "q", func(ev Event) {
		events = append(events, ev)
	})
	require.NoError(t, err)

	assert.Equal(t,
		[]string{StagePlanner, StageSearcher, StageSelector, StageWatcher, StageChecker, StageAnalyst},
		stageSequence(events))
	assert.Equal(t, blackboard.StatusVerified, res.Board.VideoStore["abc123"].Status)
}

func TestRunSuspendsOnAskUser(t *testing.T) {
	checker := &fakeStage{name: StageChecker, run: func(snap *blackboard.Blackboard) (blackboard.Update, error) {
		return blackboard.Update{
			blackboard.FieldLoopStep:      snap.LoopStep + 1,
			blackboard.FieldRoutingSignal: blackboard.SignalAskUser,
			blackboard.FieldAmbiguityNote: "which recipe variant?",
		}, nil
	}}

	store := checkpoint.NewMemoryStore()
	eng := newTestEngine(t, store, checker)

	res, err := eng.Run(context.Background(), "t-ask", "q", nil)
	require.NoError(t, err)
	assert.True(t, res.Suspended)
	assert.Empty(t, res.FinalAnswer())

	rec, err := store.Load(context.Background(), "t-ask")
	require.NoError(t, err)
	assert.Equal(t, StageAskUser, rec.NextStage)
}

func TestRunResumesFromCheckpoint(t *testing.T) {
	store := checkpoint.NewMemoryStore()

	// Session already completed planner+searcher+selector; the checkpoint
	// re-enters at the checker with accumulated history intact.
	bb := blackboard.New("resumable query")
	bb.TriedQueries = []string{"q1", "q2"}
	require.NoError(t, store.Save(context.Background(), &checkpoint.Record{
		ThreadID:  "t-resume",
		NextStage: StageChecker,
		Board:     bb,
	}))

	eng := newTestEngine(t, store)

	var events []Event
	res, err := eng.Run(context.Background(), "t-resume", "ignored for existing sessions", func(ev Event) {
		events = append(events, ev)
	})
	require.NoError(t, err)

	assert.Equal(t, []string{StageChecker, StageAnalyst}, stageSequence(events))
	assert.Equal(t, "resumable query", res.Board.UserQuery)
	assert.Equal(t, []string{"q1", "q2"}, res.Board.TriedQueries)
}

func TestResumeRequiresCheckpoint(t *testing.T) {
	eng := newTestEngine(t, checkpoint.NewMemoryStore())
	_, err := eng.Resume(context.Background(), "never-ran", nil)
	assert.Error(t, err)
}

func TestResumeWithAnswer(t *testing.T) {
	suspend := func() (checkpoint.Store, *Engine) {
		checker := &fakeStage{name: StageChecker, run: func(snap *blackboard.Blackboard) (blackboard.Update, error) {
			// Suspend on the first pass only; afterwards behave like the
			// capped checker.
			if len(snap.Constraints) == 0 {
				return blackboard.Update{
					blackboard.FieldLoopStep:      snap.LoopStep + 1,
					blackboard.FieldRoutingSignal: blackboard.SignalAskUser,
					blackboard.FieldAmbiguityNote: "which variant?",
				}, nil
			}
			return blackboard.Update{
				blackboard.FieldLoopStep:      snap.LoopStep + 1,
				blackboard.FieldRoutingSignal: blackboard.SignalAnalyst,
			}, nil
		}}
		store := checkpoint.NewMemoryStore()
		return store, newTestEngine(t, store, checker)
	}

	t.Run("answer re-enters at the planner as a constraint", func(t *testing.T) {
		_, eng := suspend()
		res, err := eng.Run(context.Background(), "t-answer", "q", nil)
		require.NoError(t, err)
		require.True(t, res.Suspended)

		var events []Event
		res, err = eng.ResumeWithAnswer(context.Background(), "t-answer", "the savory one", func(ev Event) {
			events = append(events, ev)
		})
		require.NoError(t, err)

		assert.Equal(t, StagePlanner, events[0].Stage)
		assert.False(t, res.Suspended)
		assert.Equal(t, "answer", res.FinalAnswer())
		assert.Equal(t, []string{"the savory one"}, res.Board.Constraints)
		assert.Empty(t, res.Board.AmbiguityNote)
	})

	t.Run("rejects sessions not waiting for an answer", func(t *testing.T) {
		store := checkpoint.NewMemoryStore()
		eng := newTestEngine(t, store)
		_, err := eng.Run(context.Background(), "t-done", "q", nil)
		require.NoError(t, err)

		_, err = eng.ResumeWithAnswer(context.Background(), "t-done", "late answer", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not waiting for an answer")
	})
}

func TestRunStructuralFailures(t *testing.T) {
	t.Run("unknown update field is fatal", func(t *testing.T) {
		planner := &fakeStage{name: StagePlanner, run: func(snap *blackboard.Blackboard) (blackboard.Update, error) {
			return blackboard.Update{blackboard.Field("no_such_field"): 1}, nil
		}}
		eng := newTestEngine(t, checkpoint.NewMemoryStore(), planner)

		_, err := eng.Run(context.Background(), "t-bad", "q", nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, blackboard.ErrUnknownField)
	})

	t.Run("stage error is fatal", func(t *testing.T) {
		boom := errors.New("boom")
		planner := &fakeStage{name: StagePlanner, run: func(snap *blackboard.Blackboard) (blackboard.Update, error) {
			return nil, fmt.Errorf("defect: %w", boom)
		}}
		eng := newTestEngine(t, checkpoint.NewMemoryStore(), planner)

		_, err := eng.Run(context.Background(), "t-err", "q", nil)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("empty thread id is rejected", func(t *testing.T) {
		eng := newTestEngine(t, checkpoint.NewMemoryStore())
		_, err := eng.Run(context.Background(), "", "q", nil)
		assert.Error(t, err)
	})
}

func TestStageSnapshotIsolation(t *testing.T) {
	// A stage mutating its snapshot must not leak into the merged board.
	planner := &fakeStage{name: StagePlanner, run: func(snap *blackboard.Blackboard) (blackboard.Update, error) {
		snap.UserQuery = "mutated"
		snap.TriedQueries = append(snap.TriedQueries, "sneaky")
		return blackboard.Update{}, nil
	}}
	eng := newTestEngine(t, checkpoint.NewMemoryStore(), planner)

	res, err := eng.Run(context.Background(), "t-iso", "original", nil)
	require.NoError(t, err)
	assert.Equal(t, "original", res.Board.UserQuery)
	assert.Empty(t, res.Board.TriedQueries)
}

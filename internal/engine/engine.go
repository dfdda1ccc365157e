// Package engine drives the research workflow: a finite state machine over
// stage names with one genuine cycle (checker back to planner).
//
// The engine executes one stage per step, merges the stage's partial update
// into the blackboard, emits a (stage, update) event, evaluates the next
// edge, and checkpoints the result before moving on. Termination of the
// cyclic edge is not enforced here: it depends entirely on the checker
// stage's hard loop cap. Any stage placed between the loop's entry and exit
// edges must preserve that invariant.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/dyluth/videoscout/internal/checkpoint"
	"github.com/dyluth/videoscout/pkg/blackboard"
)

// Stage names. These are the states of the workflow state machine.
const (
	StagePlanner  = "planner"
	StageSearcher = "searcher"
	StageSelector = "selector"
	StageWatcher  = "watcher"
	StageChecker  = "checker"
	StageAnalyst  = "analyst"

	// StageAskUser is the suspension state: the run stops and waits for a
	// human answer before it can be resumed.
	StageAskUser = "ask_user"

	// StageEnd is the terminal state, reached when the analyst completes.
	StageEnd = "end"
)

// Stage is one unit of work in the workflow: a function of a blackboard
// snapshot producing a partial update. Implementations may call external
// collaborators but must not mutate the snapshot, and must degrade to
// fallback values on recoverable failures instead of returning an error.
type Stage interface {
	Name() string
	Run(ctx context.Context, snap *blackboard.Blackboard) (blackboard.Update, error)
}

// Event is the externally observable progress signal: one stage completed
// and its update was merged.
type Event struct {
	ThreadID string
	Stage    string
	Update   blackboard.Update
}

// EventHandler receives events in causal (edge) order within a session.
type EventHandler func(Event)

// Result is the outcome of one engine run.
type Result struct {
	Board     *blackboard.Blackboard
	Suspended bool // routed to ask_user; resume after answering
}

// FinalAnswer returns the answer synthesized by the analyst, or "" when the
// run was suspended.
func (r *Result) FinalAnswer() string {
	return r.Board.FinalAnswer
}

// Engine owns the stage transition table and the execution loop. The engine
// holds no per-session state: everything mutable lives in the blackboard and
// the checkpoint store, so independent sessions can run concurrently on one
// Engine value.
type Engine struct {
	stages map[string]Stage
	store  checkpoint.Store
	logger *log.Logger
}

// New creates an engine over the given checkpoint store and stages. All six
// workflow stages must be present; a missing or duplicate stage is a
// construction error, not a runtime condition.
func New(store checkpoint.Store, logger *log.Logger, stages ...Stage) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("checkpoint store is required")
	}
	if logger == nil {
		logger = log.Default()
	}

	byName := make(map[string]Stage, len(stages))
	for _, s := range stages {
		if _, dup := byName[s.Name()]; dup {
			return nil, fmt.Errorf("duplicate stage %q", s.Name())
		}
		byName[s.Name()] = s
	}
	for _, name := range []string{StagePlanner, StageSearcher, StageSelector, StageWatcher, StageChecker, StageAnalyst} {
		if _, ok := byName[name]; !ok {
			return nil, fmt.Errorf("missing stage %q", name)
		}
	}

	return &Engine{stages: byName, store: store, logger: logger}, nil
}

// Run starts or continues the session identified by threadID. A fresh
// session begins at the planner with a blackboard holding only the user
// query; reusing a thread id resumes that session's blackboard at the stage
// after the last completed one. onEvent may be nil.
func (e *Engine) Run(ctx context.Context, threadID, userQuery string, onEvent EventHandler) (*Result, error) {
	if threadID == "" {
		return nil, fmt.Errorf("thread id cannot be empty")
	}

	rec, err := e.store.Load(ctx, threadID)
	switch {
	case checkpoint.IsNotFound(err):
		return e.loop(ctx, threadID, StagePlanner, blackboard.New(userQuery), onEvent)
	case err != nil:
		return nil, fmt.Errorf("failed to load checkpoint for %s: %w", threadID, err)
	default:
		return e.loop(ctx, threadID, rec.NextStage, rec.Board, onEvent)
	}
}

// Resume continues a previously checkpointed session. Unlike Run it fails
// when no checkpoint exists.
func (e *Engine) Resume(ctx context.Context, threadID string, onEvent EventHandler) (*Result, error) {
	rec, err := e.store.Load(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint for %s: %w", threadID, err)
	}
	return e.loop(ctx, threadID, rec.NextStage, rec.Board, onEvent)
}

// ResumeWithAnswer continues a session suspended at ask_user. The answer is
// recorded as an additional constraint and the workflow re-enters at the
// planner. Fails when the session is not suspended.
func (e *Engine) ResumeWithAnswer(ctx context.Context, threadID, answer string, onEvent EventHandler) (*Result, error) {
	rec, err := e.store.Load(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint for %s: %w", threadID, err)
	}
	if rec.NextStage != StageAskUser {
		return nil, fmt.Errorf("session %s is not waiting for an answer (next stage %q)", threadID, rec.NextStage)
	}

	board := rec.Board.Clone()
	board.Constraints = append(board.Constraints, answer)
	board.AmbiguityNote = ""
	board.RoutingSignal = ""

	return e.loop(ctx, threadID, StagePlanner, board, onEvent)
}

// loop is the step function applied until a terminal or suspension state:
// run stage, merge, emit, route, checkpoint.
func (e *Engine) loop(ctx context.Context, threadID, state string, board *blackboard.Blackboard, onEvent EventHandler) (*Result, error) {
	for state != StageEnd && state != StageAskUser {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		stg, ok := e.stages[state]
		if !ok {
			return nil, fmt.Errorf("no stage registered for state %q", state)
		}

		started := time.Now()
		update, err := stg.Run(ctx, board.Clone())
		if err != nil {
			// Stages handle collaborator failures themselves; an error
			// here is a defect, not a degraded run.
			return nil, fmt.Errorf("stage %s: %w", state, err)
		}

		merged, err := blackboard.Apply(board, update)
		if err != nil {
			return nil, fmt.Errorf("stage %s produced an invalid update: %w", state, err)
		}

		if onEvent != nil {
			onEvent(Event{ThreadID: threadID, Stage: state, Update: update})
		}

		next, err := e.nextState(state, merged)
		if err != nil {
			return nil, err
		}

		if err := e.store.Save(ctx, &checkpoint.Record{
			ThreadID:  threadID,
			NextStage: next,
			Board:     merged,
		}); err != nil {
			return nil, fmt.Errorf("failed to checkpoint %s after %s: %w", threadID, state, err)
		}

		e.logEvent("stage_complete", map[string]interface{}{
			"thread_id":  threadID,
			"stage":      state,
			"next_stage": next,
			"loop_step":  merged.LoopStep,
			"latency_ms": time.Since(started).Milliseconds(),
		})

		board = merged
		state = next
	}

	if state == StageAskUser {
		e.logEvent("session_suspended", map[string]interface{}{
			"thread_id": threadID,
			"note":      board.AmbiguityNote,
		})
		return &Result{Board: board, Suspended: true}, nil
	}

	e.logEvent("session_complete", map[string]interface{}{
		"thread_id": threadID,
		"loop_step": board.LoopStep,
		"videos":    len(board.VideoStore),
	})
	return &Result{Board: board}, nil
}

// nextState is the transition table. Static edges are fixed; the selector
// and checker edges are decided by the routing functions in routing.go.
func (e *Engine) nextState(state string, board *blackboard.Blackboard) (string, error) {
	switch state {
	case StagePlanner:
		return StageSearcher, nil
	case StageSearcher:
		return StageSelector, nil
	case StageSelector:
		return RouteSelector(board), nil
	case StageWatcher:
		return StageChecker, nil
	case StageChecker:
		return RouteChecker(board), nil
	case StageAnalyst:
		return StageEnd, nil
	default:
		return "", fmt.Errorf("no transition defined for state %q", state)
	}
}

// logEvent logs a structured event in JSON format.
func (e *Engine) logEvent(eventType string, data map[string]interface{}) {
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	data["level"] = "info"
	data["component"] = "engine"
	data["event_type"] = eventType

	jsonData, err := json.Marshal(data)
	if err != nil {
		e.logger.Printf("[Engine] Failed to marshal log event: %v", err)
		return
	}
	e.logger.Println(string(jsonData))
}

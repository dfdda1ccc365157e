package stage

import (
	"context"
	"log"

	"github.com/dyluth/videoscout/pkg/blackboard"
)

// Checker strictly counts loop iterations. It increments the loop step by
// exactly one per invocation and signals "planner" until the configured cap
// is reached, then "analyst" — independent of blackboard content.
//
// This hard cap is what terminates the planner cycle; the engine itself
// enforces no loop bound.
type Checker struct {
	maxLoopSteps int
	logger       *log.Logger
}

// NewChecker creates the checker stage with the given loop cap.
func NewChecker(maxLoopSteps int, logger *log.Logger) *Checker {
	if logger == nil {
		logger = log.Default()
	}
	return &Checker{maxLoopSteps: maxLoopSteps, logger: logger}
}

func (c *Checker) Name() string { return "checker" }

func (c *Checker) Run(ctx context.Context, snap *blackboard.Blackboard) (blackboard.Update, error) {
	step := snap.LoopStep + 1

	signal := blackboard.SignalPlanner
	if step >= c.maxLoopSteps {
		signal = blackboard.SignalAnalyst
	}

	c.logger.Printf("[Checker] step %d/%d: %d videos in store, %d queries tried -> %s",
		step, c.maxLoopSteps, len(snap.VideoStore), len(snap.TriedQueries), signal)

	return blackboard.Update{
		blackboard.FieldLoopStep:      step,
		blackboard.FieldRoutingSignal: signal,
	}, nil
}

package engine

import "github.com/dyluth/videoscout/pkg/blackboard"

// RouteSelector decides the edge after the selector stage: watch when the
// store holds at least one resource still awaiting inspection, otherwise go
// straight to the checker (which will usually send the loop back to the
// planner).
func RouteSelector(board *blackboard.Blackboard) string {
	for _, res := range board.VideoStore {
		if res.Status == blackboard.StatusCandidate || res.Status == blackboard.StatusAnalyzing {
			return StageWatcher
		}
	}
	return StageChecker
}

// RouteChecker decides the edge after the checker stage. Only the exact
// signals "ask_user" and "analyst" leave the loop; every other value,
// including an empty or unrecognized signal, continues with the planner.
// Continuing is the safe default, so an unknown signal is never an error.
func RouteChecker(board *blackboard.Blackboard) string {
	switch board.RoutingSignal {
	case blackboard.SignalAskUser:
		return StageAskUser
	case blackboard.SignalAnalyst:
		return StageAnalyst
	default:
		return StagePlanner
	}
}

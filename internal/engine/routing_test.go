package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dyluth/videoscout/pkg/blackboard"
)

func boardWithStatuses(statuses ...blackboard.Status) *blackboard.Blackboard {
	bb := blackboard.New("q")
	for i, s := range statuses {
		id := string(rune('a' + i))
		bb.VideoStore[id] = &blackboard.VideoResource{VideoID: id, Status: s}
	}
	return bb
}

func TestRouteSelector(t *testing.T) {
	t.Run("empty store routes to checker", func(t *testing.T) {
		assert.Equal(t, StageChecker, RouteSelector(boardWithStatuses()))
	})

	t.Run("candidate routes to watcher", func(t *testing.T) {
		assert.Equal(t, StageWatcher, RouteSelector(boardWithStatuses(blackboard.StatusCandidate)))
	})

	t.Run("analyzing routes to watcher", func(t *testing.T) {
		assert.Equal(t, StageWatcher, RouteSelector(boardWithStatuses(blackboard.StatusAnalyzing)))
	})

	t.Run("only settled statuses route to checker", func(t *testing.T) {
		bb := boardWithStatuses(blackboard.StatusVerified, blackboard.StatusWatched, blackboard.StatusRejected)
		assert.Equal(t, StageChecker, RouteSelector(bb))
	})

	t.Run("one candidate among settled resources routes to watcher", func(t *testing.T) {
		bb := boardWithStatuses(blackboard.StatusVerified, blackboard.StatusCandidate)
		assert.Equal(t, StageWatcher, RouteSelector(bb))
	})
}

func TestRouteChecker(t *testing.T) {
	route := func(signal string) string {
		bb := blackboard.New("q")
		bb.RoutingSignal = signal
		return RouteChecker(bb)
	}

	t.Run("exact signals map to their stages", func(t *testing.T) {
		assert.Equal(t, StageAskUser, route("ask_user"))
		assert.Equal(t, StageAnalyst, route("analyst"))
	})

	t.Run("everything else continues with the planner", func(t *testing.T) {
		for _, signal := range []string{"planner", "", "Analyst", "done", "ask-user", "unknown"} {
			assert.Equal(t, StagePlanner, route(signal), "signal %q", signal)
		}
	})
}

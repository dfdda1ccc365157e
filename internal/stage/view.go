package stage

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dyluth/videoscout/pkg/blackboard"
)

// plannerView renders the planner's textual view of the blackboard: the
// user goal and constraints, the search history, web context snippets and a
// per-status summary of the video store.
func plannerView(board *blackboard.Blackboard) string {
	var b strings.Builder

	fmt.Fprintf(&b, "User Goal: %s\n", board.UserQuery)
	if len(board.Constraints) > 0 {
		fmt.Fprintf(&b, "Constraints: %s\n", strings.Join(board.Constraints, "; "))
	}

	b.WriteString("\nSearch History (previously attempted queries):\n")
	if len(board.TriedQueries) == 0 {
		b.WriteString("None\n")
	} else {
		for _, q := range board.TriedQueries {
			fmt.Fprintf(&b, "- %s\n", q)
		}
	}

	if len(board.TextSearchContext) > 0 {
		b.WriteString("\nText Context (web search results):\n")
		for _, snippet := range board.TextSearchContext {
			fmt.Fprintf(&b, "- %s\n", truncate(snippet, 150))
		}
	}

	b.WriteString("\nCurrent Knowledge Status:\n")
	b.WriteString(storeSummary(board.VideoStore))

	return b.String()
}

// storeSummary groups resources by status so the model sees what is known,
// what is pending and what was discarded.
func storeSummary(store map[string]*blackboard.VideoResource) string {
	if len(store) == 0 {
		return "No videos analyzed yet.\n"
	}

	byStatus := make(map[blackboard.Status][]*blackboard.VideoResource)
	for _, id := range sortedIDs(store) {
		res := store[id]
		byStatus[res.Status] = append(byStatus[res.Status], res)
	}

	var b strings.Builder
	sections := []struct {
		status blackboard.Status
		title  string
	}{
		{blackboard.StatusVerified, "Verified Knowledge"},
		{blackboard.StatusWatched, "Watched (awaiting verification)"},
		{blackboard.StatusCandidate, "Candidates (from search results)"},
		{blackboard.StatusRejected, "Rejected"},
	}
	for _, section := range sections {
		resources := byStatus[section.status]
		if len(resources) == 0 {
			continue
		}
		fmt.Fprintf(&b, "=== %s ===\n", section.title)
		for _, res := range resources {
			fmt.Fprintf(&b, "- %s (ID: %s)\n", res.Title, res.VideoID)
			switch {
			case res.Status == blackboard.StatusRejected && res.RelevanceReason != "":
				fmt.Fprintf(&b, "  Reason: %s\n", res.RelevanceReason)
			case res.Summary != "":
				fmt.Fprintf(&b, "  Summary: %s\n", truncate(res.Summary, 200))
			case len(res.Evidence) > 0:
				for i, ev := range res.Evidence {
					if i == 3 {
						break
					}
					fmt.Fprintf(&b, "  - %s\n", truncate(oneLine(ev.Content), 150))
				}
			}
		}
	}
	if b.Len() == 0 {
		return "No videos analyzed yet.\n"
	}
	return b.String()
}

// sortedIDs returns the store's keys in a stable order so views and stage
// iteration are deterministic.
func sortedIDs(store map[string]*blackboard.VideoResource) []string {
	ids := make([]string, 0, len(store))
	for id := range store {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

package stage

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/dyluth/videoscout/internal/collab"
	"github.com/dyluth/videoscout/internal/jsonx"
	"github.com/dyluth/videoscout/pkg/blackboard"
)

// Fixed degraded answers. A run always completes with either a substantive
// answer or one of these; raw provider errors never become the final answer
// unlabeled.
const (
	AnswerNoVideos  = "No videos were successfully processed."
	AnswerNoContent = "No relevant video content or transcripts found to answer the query."
)

const analystInstruction = `Using the video clips and transcripts above,
answer the user's query directly and cite which video each claim comes from.
If the material does not answer the query, say so.`

// transcriptLine matches the "[12.0s - 15.5s]" prefix the watcher writes.
var transcriptLine = regexp.MustCompile(`(\d+\.?\d*)s\s*-\s*(\d+\.?\d*)s`)

// Analyst synthesizes the final answer from the verified resources' relevant
// temporal windows, falling back to full transcripts when no window anywhere
// was flagged relevant.
type Analyst struct {
	model  collab.ModelClient
	logger *log.Logger
}

// NewAnalyst creates the analyst stage.
func NewAnalyst(model collab.ModelClient, logger *log.Logger) *Analyst {
	if logger == nil {
		logger = log.Default()
	}
	return &Analyst{model: model, logger: logger}
}

func (a *Analyst) Name() string { return "analyst" }

func (a *Analyst) Run(ctx context.Context, snap *blackboard.Blackboard) (blackboard.Update, error) {
	if len(snap.VideoStore) == 0 {
		return blackboard.Update{blackboard.FieldFinalAnswer: AnswerNoVideos}, nil
	}

	metrics := snap.Metrics.Clone()

	sections := a.collectWindows(snap)
	if len(sections) == 0 {
		a.logger.Printf("[Analyst] no relevant windows flagged, falling back to full transcripts")
		sections = collectTranscripts(snap)
	}
	if len(sections) == 0 {
		return blackboard.Update{blackboard.FieldFinalAnswer: AnswerNoContent}, nil
	}

	parts := []collab.Part{collab.TextPart(fmt.Sprintf(
		"User Query: %s\n\nAnalyze the following video clips and transcripts to answer the query.", snap.UserQuery))}
	for _, section := range sections {
		parts = append(parts, collab.TextPart(section))
	}
	parts = append(parts, collab.TextPart(analystInstruction))

	resp, err := a.model.Invoke(ctx, "", parts)
	if err != nil {
		a.logger.Printf("[Analyst] synthesis failed: %v", err)
		return blackboard.Update{
			blackboard.FieldFinalAnswer: fmt.Sprintf("Error: %v", err),
			blackboard.FieldMetrics:     metrics,
		}, nil
	}
	metrics.AddTokens("analyst", resp.Usage.InputTokens, resp.Usage.OutputTokens, resp.Usage.TotalTokens)

	return blackboard.Update{
		blackboard.FieldFinalAnswer: resp.Content,
		blackboard.FieldMetrics:     metrics,
	}, nil
}

// windowAnalysis is the payload shape the watcher stores as a summary. The
// top-level start/end fields cover an older single-window format.
type windowAnalysis struct {
	Relevant bool     `json:"relevant"`
	Windows  []window `json:"windows"`
	window
}

type window struct {
	StartTimeSeconds float64 `json:"start_time_seconds"`
	EndTimeSeconds   float64 `json:"end_time_seconds"`
	Reasoning        string  `json:"reasoning"`
}

// collectWindows renders one context section per relevant temporal window,
// pairing the window's reasoning with the overlapping transcript lines.
func (a *Analyst) collectWindows(snap *blackboard.Blackboard) []string {
	var sections []string
	for _, id := range sortedIDs(snap.VideoStore) {
		res := snap.VideoStore[id]
		if res.Status != blackboard.StatusVerified || res.Summary == "" {
			continue
		}

		var analysis windowAnalysis
		if err := jsonx.ExtractInto(res.Summary, &analysis); err != nil {
			a.logger.Printf("[Analyst] skipping %s: unparseable window analysis", res.VideoID)
			continue
		}
		if !analysis.Relevant {
			continue
		}
		windows := analysis.Windows
		if len(windows) == 0 && analysis.EndTimeSeconds > analysis.StartTimeSeconds {
			windows = []window{analysis.window}
		}

		for _, win := range windows {
			if win.EndTimeSeconds <= win.StartTimeSeconds {
				continue
			}
			section := fmt.Sprintf("=== Video: %s [Clip: %.1fs - %.1fs] ===\nReasoning: %s",
				res.Title, win.StartTimeSeconds, win.EndTimeSeconds, win.Reasoning)
			if lines := overlappingLines(res.Transcript, win); len(lines) > 0 {
				section += "\nTranscript Segment:\n" + strings.Join(lines, "\n")
			}
			sections = append(sections, section)
		}
	}
	return sections
}

// collectTranscripts is the fallback: every transcript in full (truncated).
func collectTranscripts(snap *blackboard.Blackboard) []string {
	var sections []string
	for _, id := range sortedIDs(snap.VideoStore) {
		res := snap.VideoStore[id]
		if res.Transcript == "" {
			continue
		}
		transcript := res.Transcript
		if len(transcript) > maxTranscriptChars {
			transcript = transcript[:maxTranscriptChars] + "..."
		}
		sections = append(sections, fmt.Sprintf("=== Video Transcript: %s ===\n%s", res.Title, transcript))
	}
	return sections
}

// overlappingLines returns the transcript lines whose timestamp span
// overlaps the window.
func overlappingLines(transcript string, win window) []string {
	var out []string
	for _, line := range strings.Split(transcript, "\n") {
		m := transcriptLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		start, err1 := strconv.ParseFloat(m[1], 64)
		end, err2 := strconv.ParseFloat(m[2], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		if end >= win.StartTimeSeconds && start <= win.EndTimeSeconds {
			out = append(out, line)
		}
	}
	return out
}

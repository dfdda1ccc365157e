package stage

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/dyluth/videoscout/internal/collab"
	"github.com/dyluth/videoscout/internal/jsonx"
	"github.com/dyluth/videoscout/pkg/blackboard"
)

// maxTranscriptChars bounds the transcript passed to the inspection model.
const maxTranscriptChars = 25000

const watcherPrompt = `User query: %s
Video title: %s

You are shown %d sparsely sampled frames (timestamps listed below) and the
timestamped transcript. Identify the temporal windows of this video that are
relevant to the query. Respond with a JSON object:
{"relevant": true|false, "windows": [{"start_time_seconds": <s>, "end_time_seconds": <s>, "reasoning": "<why>"}]}

Frame timestamps:
%s

Transcript:
%s`

// Watcher inspects every candidate video: it fetches the transcript and a
// sparse set of frames, asks the inspection model for relevant temporal
// windows, and promotes the resource to verified. A video with no findings
// is still verified; the absence is recorded in the summary, not the status.
type Watcher struct {
	model     collab.ModelClient
	media     collab.MediaFetcher
	numFrames int
	logger    *log.Logger
}

// NewWatcher creates the watcher stage. numFrames is the number of sparse
// frame samples requested per video.
func NewWatcher(model collab.ModelClient, media collab.MediaFetcher, numFrames int, logger *log.Logger) *Watcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Watcher{model: model, media: media, numFrames: numFrames, logger: logger}
}

func (w *Watcher) Name() string { return "watcher" }

func (w *Watcher) Run(ctx context.Context, snap *blackboard.Blackboard) (blackboard.Update, error) {
	metrics := snap.Metrics.Clone()
	store := blackboard.CloneStore(snap.VideoStore)

	var pending []*blackboard.VideoResource
	for _, id := range sortedIDs(store) {
		if store[id].Status == blackboard.StatusCandidate {
			pending = append(pending, store[id])
		}
	}
	if len(pending) == 0 {
		w.logger.Printf("[Watcher] no candidates to watch")
		return blackboard.Update{blackboard.FieldVideoStore: store}, nil
	}

	for _, res := range pending {
		w.inspect(ctx, snap.UserQuery, res, &metrics)
		if err := res.SetStatus(blackboard.StatusVerified); err != nil {
			return nil, fmt.Errorf("watcher: %w", err)
		}
	}

	return blackboard.Update{
		blackboard.FieldVideoStore: store,
		blackboard.FieldMetrics:    metrics,
	}, nil
}

// inspect fills in the resource's transcript and summary. Every failure mode
// is recoverable: the summary then records what went wrong.
func (w *Watcher) inspect(ctx context.Context, userQuery string, res *blackboard.VideoResource, metrics *blackboard.Metrics) {
	frames, err := w.media.SampleFrames(ctx, res.URL, w.numFrames)
	if err != nil {
		w.logger.Printf("[Watcher] frame sampling failed for %s: %v", res.VideoID, err)
	}

	segments, err := w.media.FetchTranscript(ctx, res.URL)
	if err != nil {
		w.logger.Printf("[Watcher] transcript fetch failed for %s: %v", res.VideoID, err)
	}
	res.Transcript = formatTranscript(segments)

	transcript := res.Transcript
	if len(transcript) > maxTranscriptChars {
		transcript = transcript[:maxTranscriptChars]
	}

	parts := []collab.Part{collab.TextPart(fmt.Sprintf(watcherPrompt,
		userQuery, res.Title, len(frames), formatFrameTimestamps(frames), transcript))}
	for _, frame := range frames {
		parts = append(parts, collab.ImagePart(frame.ImageB64))
	}

	resp, err := w.model.Invoke(ctx, "", parts)
	if err != nil {
		w.logger.Printf("[Watcher] inspection failed for %s: %v", res.VideoID, err)
		res.Summary = fmt.Sprintf("Error: %v", err)
		return
	}
	metrics.AddTokens("watcher", resp.Usage.InputTokens, resp.Usage.OutputTokens, resp.Usage.TotalTokens)

	// Keep the structured payload when the response parses, the raw text
	// when it does not.
	if raw, err := jsonx.Extract(resp.Content); err == nil {
		res.Summary = string(raw)
	} else {
		res.Summary = resp.Content
	}
}

// formatTranscript renders segments as "[12.0s - 15.5s] text" lines, the
// shape the analyst's window matching expects.
func formatTranscript(segments []collab.TranscriptSegment) string {
	if len(segments) == 0 {
		return ""
	}
	lines := make([]string, len(segments))
	for i, seg := range segments {
		lines[i] = fmt.Sprintf("[%.1fs - %.1fs] %s", seg.Start, seg.End, seg.Text)
	}
	return strings.Join(lines, "\n")
}

func formatFrameTimestamps(frames []collab.Frame) string {
	if len(frames) == 0 {
		return "None"
	}
	lines := make([]string, len(frames))
	for i, frame := range frames {
		lines[i] = fmt.Sprintf("Frame %d: %.2fs", i+1, frame.Timestamp)
	}
	return strings.Join(lines, "\n")
}

// Package collab defines the narrow interfaces for the external services the
// workflow stages call: language-model invocation, video and text search, and
// media retrieval. The core engine never talks to these services directly;
// stages hold the handles they need and every handle can be substituted with
// a test double.
package collab

import "context"

// TokenUsage carries the token counters reported by a model invocation.
type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

// Part is one element of a multimodal prompt: text, or a base64-encoded
// JPEG frame.
type Part struct {
	Text     string
	ImageB64 string
}

// TextPart returns a text-only prompt part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// ImagePart returns an image prompt part from base64-encoded JPEG data.
func ImagePart(b64 string) Part {
	return Part{ImageB64: b64}
}

// ModelResponse is the result of one model invocation.
type ModelResponse struct {
	Content string
	Usage   TokenUsage
}

// ModelClient invokes a language model with an optional system prompt and an
// ordered list of prompt parts.
type ModelClient interface {
	Invoke(ctx context.Context, system string, parts []Part) (*ModelResponse, error)
}

// VideoHit is a single raw video search result.
type VideoHit struct {
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet,omitempty"`
	Duration string `json:"duration,omitempty"`
}

// VideoSearcher executes a query against a video search provider.
type VideoSearcher interface {
	SearchVideos(ctx context.Context, query string) ([]VideoHit, error)
}

// TextHit is a single web text search result.
type TextHit struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// TextSearcher executes a query against a web text search provider.
// Optional: stages tolerate a nil TextSearcher.
type TextSearcher interface {
	SearchText(ctx context.Context, query string) ([]TextHit, error)
}

// TranscriptSegment is a timestamped span of video transcript. Start and End
// are offsets in seconds from the beginning of the video.
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Frame is one sampled video frame with its timestamp in seconds.
type Frame struct {
	Timestamp float64 `json:"timestamp"`
	ImageB64  string  `json:"image"`
}

// MediaFetcher retrieves transcript segments and sparse frame samples for a
// video URL. Download, transcription and frame-decoding mechanics live behind
// this interface.
type MediaFetcher interface {
	FetchTranscript(ctx context.Context, url string) ([]TranscriptSegment, error)
	SampleFrames(ctx context.Context, url string, numFrames int) ([]Frame, error)
}

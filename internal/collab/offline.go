package collab

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by the offline collaborator set. Stages treat it
// like any provider outage and degrade to their documented fallbacks, so a
// run without configured providers still completes with a fixed answer.
var ErrUnavailable = errors.New("collaborator not configured")

// Offline implements every collaborator interface by failing fast. It is the
// default wiring when no provider credentials are configured.
type Offline struct{}

// NewOffline returns the offline collaborator set.
func NewOffline() *Offline {
	return &Offline{}
}

func (*Offline) Invoke(ctx context.Context, system string, parts []Part) (*ModelResponse, error) {
	return nil, ErrUnavailable
}

func (*Offline) SearchVideos(ctx context.Context, query string) ([]VideoHit, error) {
	return nil, ErrUnavailable
}

func (*Offline) SearchText(ctx context.Context, query string) ([]TextHit, error) {
	return nil, ErrUnavailable
}

func (*Offline) FetchTranscript(ctx context.Context, url string) ([]TranscriptSegment, error) {
	return nil, ErrUnavailable
}

func (*Offline) SampleFrames(ctx context.Context, url string, numFrames int) ([]Frame, error) {
	return nil, ErrUnavailable
}

package stage

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/dyluth/videoscout/internal/collab"
)

// Scripted collaborator doubles shared by the stage tests.

var errProviderDown = errors.New("provider down")

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func usage(total int64) collab.TokenUsage {
	return collab.TokenUsage{InputTokens: total - 1, OutputTokens: 1, TotalTokens: total}
}

// fakeModel replays a fixed queue of replies and records every invocation.
type fakeModel struct {
	replies []fakeReply
	calls   [][]collab.Part
	systems []string
}

type fakeReply struct {
	content string
	usage   collab.TokenUsage
	err     error
}

func (m *fakeModel) Invoke(ctx context.Context, system string, parts []collab.Part) (*collab.ModelResponse, error) {
	m.systems = append(m.systems, system)
	m.calls = append(m.calls, parts)

	if len(m.replies) == 0 {
		return nil, errProviderDown
	}
	reply := m.replies[0]
	m.replies = m.replies[1:]
	if reply.err != nil {
		return nil, reply.err
	}
	return &collab.ModelResponse{Content: reply.content, Usage: reply.usage}, nil
}

// fakeVideoSearch maps queries to canned hits.
type fakeVideoSearch struct {
	hits    map[string][]collab.VideoHit
	err     error
	queries []string
}

func (s *fakeVideoSearch) SearchVideos(ctx context.Context, query string) ([]collab.VideoHit, error) {
	s.queries = append(s.queries, query)
	if s.err != nil {
		return nil, s.err
	}
	return s.hits[query], nil
}

// fakeTextSearch maps queries to canned text hits.
type fakeTextSearch struct {
	hits map[string][]collab.TextHit
	err  error
}

func (s *fakeTextSearch) SearchText(ctx context.Context, query string) ([]collab.TextHit, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.hits[query], nil
}

// fakeMedia maps video URLs to canned transcripts and frames.
type fakeMedia struct {
	transcripts   map[string][]collab.TranscriptSegment
	frames        map[string][]collab.Frame
	transcriptErr error
	framesErr     error
}

func (m *fakeMedia) FetchTranscript(ctx context.Context, url string) ([]collab.TranscriptSegment, error) {
	if m.transcriptErr != nil {
		return nil, m.transcriptErr
	}
	return m.transcripts[url], nil
}

func (m *fakeMedia) SampleFrames(ctx context.Context, url string, numFrames int) ([]collab.Frame, error) {
	if m.framesErr != nil {
		return nil, m.framesErr
	}
	return m.frames[url], nil
}

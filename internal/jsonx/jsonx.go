// Package jsonx recovers structured JSON from free-form model output.
//
// Model responses wrap JSON in markdown fences, prose, or both. Extract tries,
// in order: a fenced code block, the largest balanced object or array
// substring, and finally the whole text. When both a well-formed object and a
// well-formed array are present, the longer matched substring wins.
package jsonx

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\}|\\[.*?\\])\\s*```")

// Extract returns the first parseable JSON object or array found in text.
func Extract(text string) (json.RawMessage, error) {
	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		candidate := m[1]
		if json.Valid([]byte(candidate)) {
			return json.RawMessage(candidate), nil
		}
	}

	var candidates []string
	if s := bracketSpan(text, '{', '}'); s != "" {
		candidates = append(candidates, s)
	}
	if s := bracketSpan(text, '[', ']'); s != "" {
		candidates = append(candidates, s)
	}
	// Longest candidate first: the longer span is most likely the full
	// payload when an object and an array are both present.
	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i]) > len(candidates[j])
	})
	for _, candidate := range candidates {
		if json.Valid([]byte(candidate)) {
			return json.RawMessage(candidate), nil
		}
	}

	trimmed := strings.TrimSpace(text)
	if json.Valid([]byte(trimmed)) && trimmed != "" {
		return json.RawMessage(trimmed), nil
	}

	return nil, fmt.Errorf("no valid JSON found in text: %s", preview(text))
}

// ExtractInto extracts JSON from text and unmarshals it into v.
func ExtractInto(text string, v any) error {
	raw, err := Extract(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to unmarshal extracted JSON: %w", err)
	}
	return nil
}

// bracketSpan returns the substring from the first open bracket to the last
// close bracket, or "" when no such span exists.
func bracketSpan(text string, open, close byte) string {
	start := strings.IndexByte(text, open)
	if start < 0 {
		return ""
	}
	end := strings.LastIndexByte(text, close)
	if end <= start {
		return ""
	}
	return text[start : end+1]
}

func preview(text string) string {
	const max = 100
	text = strings.TrimSpace(text)
	if len(text) > max {
		return text[:max] + "..."
	}
	return text
}

// ExtractVideoID resolves a video id from the common YouTube URL shapes:
// watch?v=ID, /shorts/ID and youtu.be/ID. Query parameters and fragments are
// stripped. Unrecognized URLs are returned as-is so that dedup still has a
// stable key.
func ExtractVideoID(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	if i := strings.Index(rawURL, "v="); i >= 0 {
		return trimParams(rawURL[i+len("v="):])
	}
	if i := strings.Index(rawURL, "/shorts/"); i >= 0 {
		return trimParams(rawURL[i+len("/shorts/"):])
	}
	if i := strings.Index(rawURL, "youtu.be/"); i >= 0 {
		return trimParams(rawURL[i+len("youtu.be/"):])
	}
	return rawURL
}

func trimParams(id string) string {
	if i := strings.IndexAny(id, "?&#"); i >= 0 {
		return id[:i]
	}
	return id
}

// Package checkpoint persists session blackboards keyed by thread id so a
// research session can be resumed from its last completed stage.
//
// One session's record is only ever written by one engine run at a time; the
// store does not arbitrate concurrent writers for the same thread id. Saves
// are atomic: a record is either fully persisted or not observed.
package checkpoint

import (
	"context"
	"errors"

	"github.com/dyluth/videoscout/pkg/blackboard"
)

// ErrNotFound is returned by Load when no record exists for a thread id.
var ErrNotFound = errors.New("checkpoint not found")

// IsNotFound reports whether err means "no checkpoint for this thread".
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Record is one persisted checkpoint: the merged blackboard after a stage
// completed, plus the name of the stage to execute next. Resuming a session
// re-enters the engine at NextStage with Board as the snapshot.
type Record struct {
	ThreadID  string                 `json:"thread_id"`
	NextStage string                 `json:"next_stage"`
	Board     *blackboard.Blackboard `json:"board"`
	SavedAtMs int64                  `json:"saved_at_ms"`
}

// Store persists checkpoint records keyed by thread id.
type Store interface {
	// Save persists the record for rec.ThreadID, replacing any previous one.
	Save(ctx context.Context, rec *Record) error

	// Load returns the record for threadID, or ErrNotFound.
	Load(ctx context.Context, threadID string) (*Record, error)

	// Delete removes the record for threadID. Deleting a missing record is
	// not an error.
	Delete(ctx context.Context, threadID string) error
}

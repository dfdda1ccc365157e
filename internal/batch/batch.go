// Package batch runs many research sessions concurrently through one engine.
//
// The runner fans queries out to a fixed pool of worker goroutines over a
// job channel. Each job gets its own thread id, so sessions never share a
// checkpoint; the engine itself holds no per-session state.
package batch

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dyluth/videoscout/internal/engine"
)

// Outcome is the result of one batch session.
type Outcome struct {
	ThreadID  string
	Query     string
	Answer    string
	Suspended bool
	LoopSteps int
	Err       error
	Elapsed   time.Duration
}

// Runner executes batches of queries against a shared engine.
type Runner struct {
	engine      *engine.Engine
	concurrency int
	logger      *log.Logger
}

// NewRunner creates a batch runner. Concurrency below one is an error.
func NewRunner(eng *engine.Engine, concurrency int, logger *log.Logger) (*Runner, error) {
	if eng == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be >= 1, got %d", concurrency)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{engine: eng, concurrency: concurrency, logger: logger}, nil
}

type job struct {
	index int
	query string
}

// Run executes every query and returns one outcome per query, in input
// order. A failed session is reported in its outcome; it never aborts the
// rest of the batch. Context cancellation stops feeding new jobs and fails
// the sessions still in flight.
func (r *Runner) Run(ctx context.Context, queries []string) []Outcome {
	outcomes := make([]Outcome, len(queries))

	jobs := make(chan job)
	var wg sync.WaitGroup
	for i := 0; i < r.concurrency; i++ {
		wg.Add(1)
		go r.worker(ctx, jobs, outcomes, &wg)
	}

	for i, q := range queries {
		select {
		case jobs <- job{index: i, query: q}:
		case <-ctx.Done():
			outcomes[i] = Outcome{Query: q, Err: ctx.Err()}
		}
	}
	close(jobs)
	wg.Wait()

	return outcomes
}

func (r *Runner) worker(ctx context.Context, jobs <-chan job, outcomes []Outcome, wg *sync.WaitGroup) {
	defer wg.Done()

	for j := range jobs {
		threadID := uuid.New().String()
		started := time.Now()

		result, err := r.engine.Run(ctx, threadID, j.query, nil)

		outcome := Outcome{
			ThreadID: threadID,
			Query:    j.query,
			Err:      err,
			Elapsed:  time.Since(started),
		}
		if err == nil {
			outcome.Answer = result.FinalAnswer()
			outcome.Suspended = result.Suspended
			outcome.LoopSteps = result.Board.LoopStep
		}
		outcomes[j.index] = outcome

		if err != nil {
			r.logger.Printf("[Batch] session %s failed: %v", threadID, err)
		} else {
			r.logger.Printf("[Batch] session %s done in %s (loops=%d)", threadID, outcome.Elapsed.Round(time.Millisecond), outcome.LoopSteps)
		}
	}
}

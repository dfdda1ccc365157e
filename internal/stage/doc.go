// Package stage implements the six workflow stages: planner, searcher,
// selector, watcher, checker and analyst.
//
// Every stage is a pure function of a blackboard snapshot to a partial
// update, with side effects limited to calls on the collaborator handles it
// was constructed with. Collaborator failures (provider outages, malformed
// model output, empty results) are recoverable: each stage degrades to a
// documented fallback value and never fails the run. A returned error
// signals a defect.
package stage

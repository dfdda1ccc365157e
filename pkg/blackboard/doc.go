// Package blackboard defines the shared session state for the videoscout
// research workflow and the merge policy that folds stage output into it.
//
// Every research session owns exactly one Blackboard. Stages receive an
// immutable snapshot of the board and return a partial Update; the engine
// folds the update back in via Apply. Each declared field has exactly one
// reducer, selected in the schema table at package level:
//
//   - Replace fields reflect only the most recent non-absent update
//     (scratch fields, the video store, loop step, final answer,
//     routing signal).
//   - Append fields are ordered concatenations of every contribution and
//     only ever grow within a session (tried queries, visited video ids,
//     text search context, plan trace).
//   - The metrics field uses a two-level shallow merge so unrelated
//     counter categories accumulate independently.
//
// An update naming a field outside the schema is a programming defect and
// Apply reports it as an error rather than ignoring it.
package blackboard

package blackboard

import (
	"errors"
	"fmt"
)

// Field names a blackboard field in an Update. The set of valid fields is
// fixed by the schema table below.
type Field string

const (
	FieldUserQuery            Field = "user_query"
	FieldConstraints          Field = "constraints"
	FieldVideoStore           Field = "video_store"
	FieldCurrentSearchQueries Field = "current_search_queries"
	FieldVisualHypothesis     Field = "visual_hypothesis"
	FieldRawCandidates        Field = "raw_candidates"
	FieldAmbiguityNote        Field = "ambiguity_note"
	FieldTriedQueries         Field = "tried_queries"
	FieldVisitedVideoIDs      Field = "visited_video_ids"
	FieldTextSearchContext    Field = "text_search_context"
	FieldPlanTrace            Field = "plan_trace"
	FieldLoopStep             Field = "loop_step"
	FieldFinalAnswer          Field = "final_answer"
	FieldRoutingSignal        Field = "routing_signal"
	FieldMetrics              Field = "metrics"
)

// Reducer identifies the merge rule for one field.
type Reducer int

const (
	// ReducerReplace overwrites the field with the update's value.
	ReducerReplace Reducer = iota

	// ReducerAppend concatenates the update's value onto the current one,
	// preserving order and duplicates.
	ReducerAppend

	// ReducerMergeCounters performs the two-level shallow metrics merge.
	ReducerMergeCounters
)

// schema binds every declared field to exactly one reducer. The binding is
// fixed at schema-definition time; Apply consults it on every merge.
var schema = map[Field]Reducer{
	FieldUserQuery:            ReducerReplace,
	FieldConstraints:          ReducerReplace,
	FieldVideoStore:           ReducerReplace,
	FieldCurrentSearchQueries: ReducerReplace,
	FieldVisualHypothesis:     ReducerReplace,
	FieldRawCandidates:        ReducerReplace,
	FieldAmbiguityNote:        ReducerReplace,
	FieldTriedQueries:         ReducerAppend,
	FieldVisitedVideoIDs:      ReducerAppend,
	FieldTextSearchContext:    ReducerAppend,
	FieldPlanTrace:            ReducerAppend,
	FieldLoopStep:             ReducerReplace,
	FieldFinalAnswer:          ReducerReplace,
	FieldRoutingSignal:        ReducerReplace,
	FieldMetrics:              ReducerMergeCounters,
}

// Schema returns a copy of the field -> reducer table for inspection.
func Schema() map[Field]Reducer {
	out := make(map[Field]Reducer, len(schema))
	for f, r := range schema {
		out[f] = r
	}
	return out
}

// ErrUnknownField is returned by Apply when an update names a field outside
// the schema. This signals a defective stage, not a runtime condition.
var ErrUnknownField = errors.New("unknown blackboard field")

// Update is a partial blackboard update produced by one stage invocation.
// A field absent from the update leaves the corresponding blackboard field
// unchanged.
type Update map[Field]any

// Apply folds an update into the current blackboard and returns the next
// version. The current blackboard is never mutated. Apply is total over the
// schema: every declared field has exactly one reducer, and an update naming
// any other field is an error.
func Apply(current *Blackboard, update Update) (*Blackboard, error) {
	next := current.Clone()
	for field, value := range update {
		reducer, ok := schema[field]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
		}
		var err error
		switch reducer {
		case ReducerReplace:
			err = next.replaceField(field, value)
		case ReducerAppend:
			err = next.appendField(field, value)
		case ReducerMergeCounters:
			err = next.mergeMetrics(value)
		}
		if err != nil {
			return nil, fmt.Errorf("apply %q: %w", field, err)
		}
	}
	return next, nil
}

func (b *Blackboard) replaceField(field Field, value any) error {
	switch field {
	case FieldUserQuery:
		return assign(value, &b.UserQuery)
	case FieldConstraints:
		return assign(value, &b.Constraints)
	case FieldVideoStore:
		store, ok := value.(map[string]*VideoResource)
		if !ok {
			return typeError(value, "map[string]*VideoResource")
		}
		b.VideoStore = CloneStore(store)
		return nil
	case FieldCurrentSearchQueries:
		return assign(value, &b.CurrentSearchQueries)
	case FieldVisualHypothesis:
		return assign(value, &b.VisualHypothesis)
	case FieldRawCandidates:
		return assign(value, &b.RawCandidates)
	case FieldAmbiguityNote:
		return assign(value, &b.AmbiguityNote)
	case FieldLoopStep:
		return assign(value, &b.LoopStep)
	case FieldFinalAnswer:
		return assign(value, &b.FinalAnswer)
	case FieldRoutingSignal:
		return assign(value, &b.RoutingSignal)
	default:
		return fmt.Errorf("field %q has no replace target", field)
	}
}

func (b *Blackboard) appendField(field Field, value any) error {
	items, ok := value.([]string)
	if !ok {
		return typeError(value, "[]string")
	}
	switch field {
	case FieldTriedQueries:
		b.TriedQueries = append(b.TriedQueries, items...)
	case FieldVisitedVideoIDs:
		b.VisitedVideoIDs = append(b.VisitedVideoIDs, items...)
	case FieldTextSearchContext:
		b.TextSearchContext = append(b.TextSearchContext, items...)
	case FieldPlanTrace:
		b.PlanTrace = append(b.PlanTrace, items...)
	default:
		return fmt.Errorf("field %q has no append target", field)
	}
	return nil
}

func (b *Blackboard) mergeMetrics(value any) error {
	metrics, ok := value.(Metrics)
	if !ok {
		return typeError(value, "Metrics")
	}
	b.Metrics = b.Metrics.Merge(metrics)
	return nil
}

func assign[T any](value any, dst *T) error {
	v, ok := value.(T)
	if !ok {
		return typeError(value, fmt.Sprintf("%T", *dst))
	}
	*dst = v
	return nil
}

func typeError(value any, want string) error {
	return fmt.Errorf("wrong value type %T (want %s)", value, want)
}

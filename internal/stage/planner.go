package stage

import (
	"context"
	"fmt"
	"log"

	"github.com/dyluth/videoscout/internal/collab"
	"github.com/dyluth/videoscout/internal/jsonx"
	"github.com/dyluth/videoscout/pkg/blackboard"
)

const plannerSystemPrompt = `You plan video research. Given the user's goal,
the search history and the current knowledge, propose up to %d new search
queries that are likely to surface videos answering the goal. Avoid queries
already tried. Respond with a JSON object:
{"thought": "<your reasoning>", "search_queries": ["<query>", ...]}`

// Planner produces the next round of search queries from the accumulated
// knowledge and query history.
type Planner struct {
	model      collab.ModelClient
	maxQueries int
	logger     *log.Logger
}

// NewPlanner creates the planner stage. maxQueries caps the number of
// queries emitted per plan.
func NewPlanner(model collab.ModelClient, maxQueries int, logger *log.Logger) *Planner {
	if logger == nil {
		logger = log.Default()
	}
	return &Planner{model: model, maxQueries: maxQueries, logger: logger}
}

func (p *Planner) Name() string { return "planner" }

// Run renders the planner's view of the blackboard, asks the model for new
// queries and appends the plan rationale to the trace. On any model or parse
// failure it degrades to re-issuing the raw user query as the only search
// query, with a trace entry noting the fallback.
func (p *Planner) Run(ctx context.Context, snap *blackboard.Blackboard) (blackboard.Update, error) {
	metrics := snap.Metrics.Clone()

	resp, err := p.model.Invoke(ctx, fmt.Sprintf(plannerSystemPrompt, p.maxQueries),
		[]collab.Part{collab.TextPart(plannerView(snap))})
	if err != nil {
		p.logger.Printf("[Planner] model error: %v, falling back to user query", err)
		return p.fallback(snap, metrics), nil
	}
	metrics.AddTokens("planner", resp.Usage.InputTokens, resp.Usage.OutputTokens, resp.Usage.TotalTokens)

	var plan struct {
		Thought       string   `json:"thought"`
		SearchQueries []string `json:"search_queries"`
	}
	if err := jsonx.ExtractInto(resp.Content, &plan); err != nil {
		p.logger.Printf("[Planner] plan parse failed: %v, falling back to user query", err)
		return p.fallback(snap, metrics), nil
	}

	if len(plan.SearchQueries) > p.maxQueries {
		plan.SearchQueries = plan.SearchQueries[:p.maxQueries]
	}

	return blackboard.Update{
		blackboard.FieldPlanTrace:            []string{"Thought: " + plan.Thought},
		blackboard.FieldCurrentSearchQueries: plan.SearchQueries,
		blackboard.FieldMetrics:              metrics,
	}, nil
}

func (p *Planner) fallback(snap *blackboard.Blackboard, metrics blackboard.Metrics) blackboard.Update {
	return blackboard.Update{
		blackboard.FieldPlanTrace:            []string{"Thought: planning failed, falling back to the original query."},
		blackboard.FieldCurrentSearchQueries: []string{snap.UserQuery},
		blackboard.FieldMetrics:              metrics,
	}
}

// Package orchestrator is the top-level façade of the action pipeline:
// model text in, executed actions and a composed summary out.
package orchestrator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentd/internal/action"
	"github.com/fyrsmithlabs/agentd/internal/executor"
	"github.com/fyrsmithlabs/agentd/internal/gate"
	"github.com/fyrsmithlabs/agentd/internal/plan"
	"github.com/fyrsmithlabs/agentd/internal/risk"
)

// CompletionService generates model text for a user message. It is the
// only external call whose failure is terminal for a handle() invocation.
type CompletionService interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Response is the result of handling one user message. The summary is
// always present; results are empty for plain chat.
type Response struct {
	Summary string          `json:"summary"`
	Results []action.Result `json:"results"`
}

// Orchestrator wires the pipeline. All dependencies are explicit
// constructor arguments; there are no process-wide singletons, so tests
// get fresh rate-limit and session state per instance.
type Orchestrator struct {
	completion CompletionService
	parser     *action.Parser
	classifier *risk.Classifier
	authorizer *gate.Gate
	actions    *executor.Executor
	planner    plan.Planner
	plans      *plan.Executor
	logger     *zap.Logger
}

// New creates an orchestrator. logger may be nil.
func New(completion CompletionService, parser *action.Parser, classifier *risk.Classifier, authorizer *gate.Gate, actions *executor.Executor, plans *plan.Executor, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		completion: completion,
		parser:     parser,
		classifier: classifier,
		authorizer: authorizer,
		actions:    actions,
		plans:      plans,
		logger:     logger,
	}
}

// Handle is the sole entry point for the surrounding chat layer. It
// returns an error only when the completion service fails; every
// execution-level failure travels inside the response as data.
func (o *Orchestrator) Handle(ctx context.Context, userMessage string) (*Response, error) {
	text, err := o.completion.Complete(ctx, userMessage)
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}

	reqs := o.parser.Parse(text)
	if len(reqs) == 0 {
		// Plain chat: the model text passes through unchanged.
		return &Response{Summary: text, Results: []action.Result{}}, nil
	}

	var results []action.Result
	if len(reqs) == 1 {
		results = o.runSingle(ctx, reqs[0])
	} else {
		p := o.planner.Build(reqs)
		o.logger.Debug("executing plan",
			zap.String("plan_id", p.ID),
			zap.Int("steps", len(p.Steps)),
		)
		results = o.plans.Run(ctx, p)
	}

	return &Response{
		Summary: composeSummary(text, reqs, results),
		Results: results,
	}, nil
}

// runSingle drives one request through classify, authorize, and execute
// with an inline retry on transient failure.
func (o *Orchestrator) runSingle(ctx context.Context, req action.Request) []action.Result {
	assessment := o.classifier.Classify(req)

	decision, err := o.authorizer.Authorize(ctx, req, assessment)
	if err != nil || decision.Outcome == gate.OutcomeDenied {
		reason := decision.Reason
		if err != nil {
			reason = "authorization cancelled"
		}
		return []action.Result{{
			Request: req,
			Status:  action.StatusSkipped,
			Err:     &action.Error{Kind: action.KindDenied, Message: reason},
		}}
	}

	if decision.Outcome == gate.OutcomeApprovedWithEdit {
		if decision.EditedTarget != "" {
			req.Target = decision.EditedTarget
		}
		if decision.EditedPayload != "" {
			req.Payload = decision.EditedPayload
		}
	}

	return []action.Result{o.actions.ExecuteWithRetry(ctx, req)}
}

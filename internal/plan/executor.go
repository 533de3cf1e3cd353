package plan

import (
	"context"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentd/internal/action"
	"github.com/fyrsmithlabs/agentd/internal/executor"
	"github.com/fyrsmithlabs/agentd/internal/gate"
	"github.com/fyrsmithlabs/agentd/internal/risk"
	"github.com/fyrsmithlabs/agentd/internal/telemetry"
)

// Stage names reported in progress updates.
const (
	StageAuthorize = "authorize"
	StageExecute   = "execute"
	StageRetry     = "retry"
	StageDone      = "done"
)

// Progress is emitted after every step transition, never batched, so
// callers can reflect incremental state.
type Progress struct {
	PlanID     string
	PlanStatus Status
	StepIndex  int
	Stage      string
	Result     *action.Result
}

// ProgressFunc receives progress updates.
type ProgressFunc func(Progress)

// Executor drives plans strictly sequentially: later steps may depend on
// earlier ones, and the approval UX presents one decision at a time.
type Executor struct {
	classifier *risk.Classifier
	authorizer *gate.Gate
	actions    *executor.Executor
	logger     *zap.Logger
	metrics    *telemetry.Metrics
	onProgress ProgressFunc
}

// NewExecutor creates a plan executor. logger and metrics may be nil.
func NewExecutor(classifier *risk.Classifier, authorizer *gate.Gate, actions *executor.Executor, logger *zap.Logger, metrics *telemetry.Metrics) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		classifier: classifier,
		authorizer: authorizer,
		actions:    actions,
		logger:     logger,
		metrics:    metrics,
	}
}

// OnProgress sets the progress callback.
func (e *Executor) OnProgress(fn ProgressFunc) {
	e.onProgress = fn
}

// Run executes every step in order until the plan reaches a terminal
// state. Per step: classify, authorize, execute, with one retry on a
// transient failure. A gate denial aborts the plan; a permanent failure
// marks it partially failed and stops advancing. Cancellation is checked
// between steps, never mid-step.
func (e *Executor) Run(ctx context.Context, p *Plan) []action.Result {
	p.Status = StatusInProgress
	e.logger.Info("plan started",
		zap.String("plan_id", p.ID),
		zap.Int("steps", len(p.Steps)),
	)

	for i := range p.Steps {
		if ctx.Err() != nil {
			p.Status = StatusAborted
			e.report(p, i, StageDone, nil)
			break
		}

		step := &p.Steps[i]
		if !e.runStep(ctx, p, step) {
			break
		}
	}

	if !p.Status.Terminal() {
		p.Status = StatusCompleted
	}
	e.metrics.IncPlanFinished(string(p.Status))
	e.logger.Info("plan finished",
		zap.String("plan_id", p.ID),
		zap.String("status", string(p.Status)),
	)
	return p.Results()
}

// runStep advances one step. Returns false when the plan must stop.
func (e *Executor) runStep(ctx context.Context, p *Plan, step *Step) bool {
	assessment := e.classifier.Classify(step.Request)
	step.Assessment = &assessment

	decision, err := e.authorizer.Authorize(ctx, step.Request, assessment)
	step.Decision = &decision
	e.report(p, step.Index, StageAuthorize, nil)
	if err != nil {
		// Context cancelled while awaiting approval.
		p.Status = StatusAborted
		e.report(p, step.Index, StageDone, nil)
		return false
	}

	if decision.Outcome == gate.OutcomeDenied {
		res := action.Result{
			Request: step.Request,
			Status:  action.StatusSkipped,
			Err:     &action.Error{Kind: action.KindDenied, Message: decision.Reason},
		}
		step.Result = &res
		p.Status = StatusAborted
		e.report(p, step.Index, StageDone, &res)
		return false
	}

	req := step.Request
	if decision.Outcome == gate.OutcomeApprovedWithEdit {
		if decision.EditedTarget != "" {
			req.Target = decision.EditedTarget
		}
		if decision.EditedPayload != "" {
			req.Payload = decision.EditedPayload
		}
	}

	res := e.actions.Execute(ctx, req)
	e.report(p, step.Index, StageExecute, &res)

	if res.Status == action.StatusFailed && res.Err != nil && res.Err.Kind == action.KindTransient {
		e.report(p, step.Index, StageRetry, &res)
		res = e.actions.Execute(ctx, req)
	}
	step.Result = &res

	if res.Status == action.StatusFailed {
		p.Status = StatusPartiallyFailed
		e.report(p, step.Index, StageDone, &res)
		return false
	}

	e.report(p, step.Index, StageDone, &res)
	return true
}

func (e *Executor) report(p *Plan, stepIndex int, stage string, res *action.Result) {
	if e.onProgress == nil {
		return
	}
	e.onProgress(Progress{
		PlanID:     p.ID,
		PlanStatus: p.Status,
		StepIndex:  stepIndex,
		Stage:      stage,
		Result:     res,
	})
}

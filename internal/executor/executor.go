// Package executor runs approved action requests through the tool
// registry and maps failures into categorized results.
package executor

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentd/internal/action"
	"github.com/fyrsmithlabs/agentd/internal/telemetry"
	"github.com/fyrsmithlabs/agentd/internal/tools"
)

// Executor dispatches requests to capability handlers. It never returns
// a Go error: internal failures are captured in the result.
type Executor struct {
	registry *tools.Registry
	ws       tools.WorkspaceProvider
	logger   *zap.Logger
	metrics  *telemetry.Metrics
}

// New creates an executor. logger and metrics may be nil.
func New(registry *tools.Registry, ws tools.WorkspaceProvider, logger *zap.Logger, metrics *telemetry.Metrics) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{registry: registry, ws: ws, logger: logger, metrics: metrics}
}

// Execute runs the request exactly once. Retry policy lives with the
// caller: the task executor retries plan steps itself, the single-action
// path uses ExecuteWithRetry.
func (e *Executor) Execute(ctx context.Context, req action.Request) action.Result {
	res := e.executeOnce(ctx, req)
	e.metrics.IncActionExecuted(string(req.Capability), string(res.Status))
	return res
}

// ExecuteWithRetry retries once, with unchanged parameters, when the
// first attempt fails with a transient error.
func (e *Executor) ExecuteWithRetry(ctx context.Context, req action.Request) action.Result {
	res := e.executeOnce(ctx, req)
	if res.Status == action.StatusFailed && res.Err != nil && res.Err.Kind == action.KindTransient {
		e.logger.Debug("retrying transient failure",
			zap.String("capability", string(req.Capability)),
			zap.String("error", res.Err.Message),
		)
		res = e.executeOnce(ctx, req)
	}
	e.metrics.IncActionExecuted(string(req.Capability), string(res.Status))
	return res
}

func (e *Executor) executeOnce(ctx context.Context, req action.Request) (res action.Result) {
	res = action.Result{Request: req}

	// A handler must never take the pipeline down.
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("handler panicked",
				zap.String("capability", string(req.Capability)),
				zap.Any("panic", r),
			)
			res.Status = action.StatusFailed
			res.Err = &action.Error{
				Kind:    action.KindPermanent,
				Message: fmt.Sprintf("internal handler failure: %v", r),
			}
		}
	}()

	handler, ok := e.registry.Lookup(req.Capability)
	if !ok {
		// Parse-time validation makes this unreachable for well-formed
		// requests; kept as a hard failure rather than a silent no-op.
		res.Status = action.StatusFailed
		res.Err = &action.Error{
			Kind:    action.KindPermanent,
			Message: fmt.Sprintf("no handler for capability %q (registered: %v)", req.Capability, e.registry.Names()),
		}
		return res
	}

	detail, err := handler(ctx, req, e.ws)
	res.Detail = detail
	if err != nil {
		res.Status = action.StatusFailed
		res.Err = &action.Error{Kind: kindOf(err), Message: err.Error()}
		e.logger.Debug("action failed",
			zap.String("capability", string(req.Capability)),
			zap.String("kind", string(res.Err.Kind)),
			zap.Error(err),
		)
		return res
	}

	res.Status = action.StatusSuccess
	return res
}

// kindOf categorizes a handler error for retry policy. Contention
// signals from the workspace are the only transient kind; everything
// else is permanent and surfaced with the underlying message attached.
func kindOf(err error) action.ErrorKind {
	if errors.Is(err, tools.ErrBusy) {
		return action.KindTransient
	}
	return action.KindPermanent
}

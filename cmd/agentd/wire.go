package main

import (
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentd/internal/action"
	"github.com/fyrsmithlabs/agentd/internal/audit"
	"github.com/fyrsmithlabs/agentd/internal/completion"
	"github.com/fyrsmithlabs/agentd/internal/config"
	"github.com/fyrsmithlabs/agentd/internal/executor"
	"github.com/fyrsmithlabs/agentd/internal/gate"
	"github.com/fyrsmithlabs/agentd/internal/orchestrator"
	"github.com/fyrsmithlabs/agentd/internal/plan"
	"github.com/fyrsmithlabs/agentd/internal/risk"
	"github.com/fyrsmithlabs/agentd/internal/telemetry"
	"github.com/fyrsmithlabs/agentd/internal/tools"
	"github.com/fyrsmithlabs/agentd/internal/workspace"
)

// pipeline holds the wired components behind one handle() entry point.
type pipeline struct {
	orch     *orchestrator.Orchestrator
	auditLog *audit.Log
	registry *prometheus.Registry
	natsConn *nats.Conn
}

// buildPipeline wires the full action pipeline from configuration.
// prompt decides the approval channel: policy for serve, terminal for ask.
func buildPipeline(cfg *config.Config, prompt gate.Prompt, logger *zap.Logger) (*pipeline, error) {
	registry := prometheus.NewRegistry()
	metrics := telemetry.New(registry)

	ws, err := workspace.NewLocal(cfg.Workspace.Root, logger.Named("workspace"),
		workspace.WithCommandTimeout(cfg.Workspace.CommandTimeout))
	if err != nil {
		return nil, fmt.Errorf("initializing workspace: %w", err)
	}

	var sinks []audit.Sink
	var natsConn *nats.Conn
	if cfg.Audit.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.Audit.NATSURL)
		if err != nil {
			return nil, fmt.Errorf("connecting to NATS: %w", err)
		}
		sinks = append(sinks, audit.NewNATSSink(natsConn, cfg.Audit.NATSSubject))
		logger.Info("audit export enabled",
			zap.String("url", cfg.Audit.NATSURL),
			zap.String("subject", cfg.Audit.NATSSubject),
		)
	}
	auditLog := audit.NewLog(logger.Named("audit"), sinks...)

	budgets := gate.DefaultBudgets()
	for class, b := range cfg.Gate.Limits {
		budgets[class] = gate.Budget{Window: b.Window, Max: b.Max, Burst: b.Burst}
	}

	classifier := risk.NewClassifier(ws.Root(), ws.ExistsProbe())
	authorizer := gate.New(classifier, prompt, gate.NewLimiter(budgets), auditLog, logger.Named("gate"), metrics)

	actions := executor.New(tools.NewRegistry(), ws, logger.Named("executor"), metrics)
	plans := plan.NewExecutor(classifier, authorizer, actions, logger.Named("plan"), metrics)

	svc, err := completion.NewService(completion.Config{
		BaseURL: cfg.Completion.BaseURL,
		Model:   cfg.Completion.Model,
		APIKey:  cfg.Completion.APIKey,
		Timeout: cfg.Completion.Timeout,
	}, logger.Named("completion"))
	if err != nil {
		return nil, fmt.Errorf("initializing completion service: %w", err)
	}

	parser := action.NewParser(logger.Named("parser"), metrics)
	orch := orchestrator.New(svc, parser, classifier, authorizer, actions, plans, logger.Named("orchestrator"))

	return &pipeline{
		orch:     orch,
		auditLog: auditLog,
		registry: registry,
		natsConn: natsConn,
	}, nil
}

// close releases external connections held by the pipeline.
func (p *pipeline) close() {
	if p.natsConn != nil {
		p.natsConn.Drain()
	}
}

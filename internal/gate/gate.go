// Package gate combines rate limiting, approval policy, and audit
// recording into the single authorization checkpoint every action request
// passes before execution.
package gate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentd/internal/action"
	"github.com/fyrsmithlabs/agentd/internal/audit"
	"github.com/fyrsmithlabs/agentd/internal/risk"
	"github.com/fyrsmithlabs/agentd/internal/telemetry"
)

// Outcome is the gate's verdict on one request.
type Outcome string

const (
	OutcomeApproved         Outcome = "approved"
	OutcomeDenied           Outcome = "denied"
	OutcomeApprovedWithEdit Outcome = "approved_with_edit"
)

// Decision is the resolved outcome of authorization. Authorize always
// returns exactly one of the three outcomes; there is no pending state.
type Decision struct {
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason,omitempty"`

	// EditedTarget/EditedPayload are set only for ApprovedWithEdit.
	EditedTarget  string `json:"edited_target,omitempty"`
	EditedPayload string `json:"edited_payload,omitempty"`

	// RetryAfter hints when a rate-limited caller may retry.
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

// Gate authorizes action requests. Instances are constructed once and
// passed in explicitly; rate-limit counters and the audit log are the
// only state shared across concurrent handle() calls.
type Gate struct {
	classifier *risk.Classifier
	prompt     Prompt
	limiter    *Limiter
	auditLog   *audit.Log
	logger     *zap.Logger
	metrics    *telemetry.Metrics

	mu         sync.Mutex
	remembered map[string]Outcome // moderate-tier session memory
}

// New creates a gate. logger and metrics may be nil.
func New(classifier *risk.Classifier, prompt Prompt, limiter *Limiter, auditLog *audit.Log, logger *zap.Logger, metrics *telemetry.Metrics) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limiter == nil {
		limiter = NewLimiter(nil)
	}
	return &Gate{
		classifier: classifier,
		prompt:     prompt,
		limiter:    limiter,
		auditLog:   auditLog,
		logger:     logger,
		metrics:    metrics,
		remembered: make(map[string]Outcome),
	}
}

// Authorize decides whether a request may proceed. It may suspend while
// awaiting a human approval interaction. The returned error is non-nil
// only on context cancellation; every other path resolves to a decision.
func (g *Gate) Authorize(ctx context.Context, req action.Request, assessment risk.Assessment) (Decision, error) {
	if class, ok, retry := g.limiter.Allow(req.Capability, assessment.Tier); !ok {
		g.metrics.IncRateLimited(class)
		d := Decision{
			Outcome:    OutcomeDenied,
			Reason:     fmt.Sprintf("rate limit exceeded for %s actions, retry in %s", class, retry.Round(time.Second)),
			RetryAfter: retry,
		}
		g.record(req, assessment.Tier, d)
		return d, nil
	}

	tier := effectiveTier(req, assessment)

	switch tier {
	case risk.TierSafe:
		d := Decision{Outcome: OutcomeApproved, Reason: "safe tier auto-approved"}
		g.record(req, assessment.Tier, d)
		return d, nil

	case risk.TierModerate:
		return g.authorizeModerate(ctx, req, assessment)

	default: // risk.TierDangerous
		return g.authorizeDangerous(ctx, req, assessment)
	}
}

// effectiveTier escalates below-full-confidence requests to at least
// Moderate so heuristic guesses are never auto-executed.
func effectiveTier(req action.Request, assessment risk.Assessment) risk.Tier {
	if assessment.Tier == risk.TierSafe && !req.Full() {
		return risk.TierModerate
	}
	return assessment.Tier
}

func (g *Gate) authorizeModerate(ctx context.Context, req action.Request, assessment risk.Assessment) (Decision, error) {
	key := sessionKey(req)

	// Remembered decisions cover session-equivalent actions, but never
	// implicit suggestions, which always need explicit confirmation.
	if req.Confidence > action.ConfidenceImplicit {
		g.mu.Lock()
		prior, ok := g.remembered[key]
		g.mu.Unlock()
		if ok {
			d := Decision{Outcome: prior, Reason: "remembered session decision"}
			g.record(req, assessment.Tier, d)
			return d, nil
		}
	}

	d, err := g.ask(ctx, req, assessment)
	if err != nil {
		return d, err
	}
	if d.Outcome == OutcomeApprovedWithEdit {
		// Edits are never remembered: the decision was about the edited
		// values, not the session key of the original request.
		d = g.reclassifyEdit(req, d)
	} else if d.Outcome == OutcomeApproved || d.Outcome == OutcomeDenied {
		g.mu.Lock()
		g.remembered[key] = d.Outcome
		g.mu.Unlock()
	}
	g.record(req, assessment.Tier, d)
	return d, nil
}

func (g *Gate) authorizeDangerous(ctx context.Context, req action.Request, assessment risk.Assessment) (Decision, error) {
	d, err := g.ask(ctx, req, assessment)
	if err != nil {
		return d, err
	}
	if d.Outcome == OutcomeApprovedWithEdit {
		d = g.reclassifyEdit(req, d)
	}
	g.record(req, assessment.Tier, d)
	return d, nil
}

// reclassifyEdit re-runs classification over the edited request before an
// ApprovedWithEdit decision stands, on every tier. An edit must never
// escalate past what was shown to the approver.
func (g *Gate) reclassifyEdit(req action.Request, d Decision) Decision {
	edited := req
	if d.EditedTarget != "" {
		edited.Target = d.EditedTarget
	}
	if d.EditedPayload != "" {
		edited.Payload = d.EditedPayload
	}
	reassessed := g.classifier.Classify(edited)
	if reassessed.Tier == risk.TierDangerous {
		return Decision{
			Outcome: OutcomeDenied,
			Reason:  fmt.Sprintf("edited input still dangerous: %v", reassessed.Reasons),
		}
	}
	return d
}

// ask invokes the prompt and normalizes failures into denials so the
// gate never returns an unresolved state.
func (g *Gate) ask(ctx context.Context, req action.Request, assessment risk.Assessment) (Decision, error) {
	d, err := g.prompt.Ask(ctx, req, assessment)
	if err != nil {
		if ctx.Err() != nil {
			denied := Decision{Outcome: OutcomeDenied, Reason: "authorization cancelled"}
			g.record(req, assessment.Tier, denied)
			return denied, ctx.Err()
		}
		g.logger.Warn("approval prompt failed", zap.Error(err))
		return Decision{Outcome: OutcomeDenied, Reason: fmt.Sprintf("approval unavailable: %v", err)}, nil
	}
	switch d.Outcome {
	case OutcomeApproved, OutcomeDenied, OutcomeApprovedWithEdit:
		return d, nil
	default:
		return Decision{Outcome: OutcomeDenied, Reason: "prompt returned no decision"}, nil
	}
}

// record writes the decision to the audit log. Auditing lives inside the
// gate, not the executor, so denials are captured too.
func (g *Gate) record(req action.Request, tier risk.Tier, d Decision) {
	g.metrics.IncGateDecision(string(tier), string(d.Outcome))
	if g.auditLog != nil {
		g.auditLog.Append(string(req.Capability), req.Target, string(tier), string(d.Outcome))
	}
	g.logger.Debug("gate decision",
		zap.String("capability", string(req.Capability)),
		zap.String("tier", string(tier)),
		zap.String("outcome", string(d.Outcome)),
		zap.String("reason", d.Reason),
	)
}

// sessionKey identifies session-equivalent actions for decision memory.
func sessionKey(req action.Request) string {
	return string(req.Capability) + ":" + audit.HashTarget(req.Target)
}

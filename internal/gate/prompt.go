package gate

import (
	"context"

	"github.com/fyrsmithlabs/agentd/internal/action"
	"github.com/fyrsmithlabs/agentd/internal/risk"
)

// Prompt asks for human approval of a request. Safe-tier requests are
// resolved by policy without invoking the prompt at all.
type Prompt interface {
	Ask(ctx context.Context, req action.Request, assessment risk.Assessment) (Decision, error)
}

// PolicyPrompt resolves approvals without human interaction, for daemon
// mode where no approval channel is attached. Dangerous requests are
// denied unless explicitly enabled.
type PolicyPrompt struct {
	// ApproveModerate auto-approves Moderate-tier prompts.
	ApproveModerate bool

	// ApproveDangerous auto-approves Dangerous-tier prompts. Off by
	// default; turning it on removes the last human checkpoint.
	ApproveDangerous bool
}

// Ask resolves the prompt from static policy.
func (p PolicyPrompt) Ask(_ context.Context, _ action.Request, assessment risk.Assessment) (Decision, error) {
	switch assessment.Tier {
	case risk.TierDangerous:
		if p.ApproveDangerous {
			return Decision{Outcome: OutcomeApproved, Reason: "approved by policy"}, nil
		}
		return Decision{Outcome: OutcomeDenied, Reason: "dangerous actions require interactive approval"}, nil
	default:
		if p.ApproveModerate {
			return Decision{Outcome: OutcomeApproved, Reason: "approved by policy"}, nil
		}
		return Decision{Outcome: OutcomeDenied, Reason: "no approval channel available"}, nil
	}
}

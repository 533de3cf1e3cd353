package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/agentd/internal/action"
	"github.com/fyrsmithlabs/agentd/internal/audit"
	"github.com/fyrsmithlabs/agentd/internal/risk"
)

// scriptedPrompt returns queued decisions in order and records what it
// was asked.
type scriptedPrompt struct {
	decisions []Decision
	err       error
	asked     []action.Request
}

func (p *scriptedPrompt) Ask(_ context.Context, req action.Request, _ risk.Assessment) (Decision, error) {
	p.asked = append(p.asked, req)
	if p.err != nil {
		return Decision{}, p.err
	}
	if len(p.decisions) == 0 {
		return Decision{Outcome: OutcomeDenied, Reason: "script exhausted"}, nil
	}
	d := p.decisions[0]
	p.decisions = p.decisions[1:]
	return d, nil
}

func newTestGate(prompt Prompt) (*Gate, *audit.Log) {
	classifier := risk.NewClassifier("/ws", nil)
	log := audit.NewLog(nil)
	return New(classifier, prompt, NewLimiter(nil), log, nil, nil), log
}

func fullConfidence(capability action.Capability, target string) action.Request {
	return action.Request{Capability: capability, Target: target, Confidence: action.ConfidenceStructured}
}

func TestSafeAutoApproved(t *testing.T) {
	prompt := &scriptedPrompt{}
	g, log := newTestGate(prompt)

	req := fullConfidence(action.CapCreateFile, "new.txt")
	d, err := g.Authorize(context.Background(), req, risk.Assessment{Tier: risk.TierSafe})

	require.NoError(t, err)
	assert.Equal(t, OutcomeApproved, d.Outcome)
	assert.Empty(t, prompt.asked, "safe tier must not prompt")
	assert.Equal(t, 1, log.Len(), "auto-approval still audited")
}

func TestLowConfidenceNeverAutoExecutes(t *testing.T) {
	prompt := &scriptedPrompt{decisions: []Decision{{Outcome: OutcomeApproved}}}
	g, _ := newTestGate(prompt)

	// Safe tier, but parsed heuristically: escalated to the Moderate path.
	req := action.Request{
		Capability: action.CapCreateFile,
		Target:     "guessed.txt",
		Confidence: action.ConfidenceDirected,
	}
	d, err := g.Authorize(context.Background(), req, risk.Assessment{Tier: risk.TierSafe})

	require.NoError(t, err)
	assert.Equal(t, OutcomeApproved, d.Outcome)
	assert.Len(t, prompt.asked, 1, "escalated request must prompt")
}

func TestModerateSessionMemory(t *testing.T) {
	t.Run("approval is remembered for equivalent actions", func(t *testing.T) {
		prompt := &scriptedPrompt{decisions: []Decision{{Outcome: OutcomeApproved}}}
		g, _ := newTestGate(prompt)

		req := fullConfidence(action.CapEditFile, "main.go")
		assessment := risk.Assessment{Tier: risk.TierModerate}

		d, err := g.Authorize(context.Background(), req, assessment)
		require.NoError(t, err)
		require.Equal(t, OutcomeApproved, d.Outcome)

		d, err = g.Authorize(context.Background(), req, assessment)
		require.NoError(t, err)
		assert.Equal(t, OutcomeApproved, d.Outcome)
		assert.Len(t, prompt.asked, 1, "second ask resolved from memory")
	})

	t.Run("denial is remembered too", func(t *testing.T) {
		prompt := &scriptedPrompt{decisions: []Decision{{Outcome: OutcomeDenied}}}
		g, _ := newTestGate(prompt)

		req := fullConfidence(action.CapEditFile, "main.go")
		assessment := risk.Assessment{Tier: risk.TierModerate}

		_, err := g.Authorize(context.Background(), req, assessment)
		require.NoError(t, err)

		d, err := g.Authorize(context.Background(), req, assessment)
		require.NoError(t, err)
		assert.Equal(t, OutcomeDenied, d.Outcome)
		assert.Len(t, prompt.asked, 1)
	})

	t.Run("different targets are distinct", func(t *testing.T) {
		prompt := &scriptedPrompt{decisions: []Decision{
			{Outcome: OutcomeApproved},
			{Outcome: OutcomeApproved},
		}}
		g, _ := newTestGate(prompt)

		assessment := risk.Assessment{Tier: risk.TierModerate}
		_, err := g.Authorize(context.Background(), fullConfidence(action.CapEditFile, "a.go"), assessment)
		require.NoError(t, err)
		_, err = g.Authorize(context.Background(), fullConfidence(action.CapEditFile, "b.go"), assessment)
		require.NoError(t, err)

		assert.Len(t, prompt.asked, 2)
	})

	t.Run("implicit suggestions never use memory", func(t *testing.T) {
		prompt := &scriptedPrompt{decisions: []Decision{
			{Outcome: OutcomeApproved},
			{Outcome: OutcomeApproved},
		}}
		g, _ := newTestGate(prompt)

		req := action.Request{
			Capability: action.CapCreateFile,
			Target:     "snippet.py",
			Confidence: action.ConfidenceImplicit,
		}
		assessment := risk.Assessment{Tier: risk.TierModerate}

		_, err := g.Authorize(context.Background(), req, assessment)
		require.NoError(t, err)
		_, err = g.Authorize(context.Background(), req, assessment)
		require.NoError(t, err)

		assert.Len(t, prompt.asked, 2, "implicit requests always reconfirm")
	})
}

func TestDangerousEditReclassified(t *testing.T) {
	t.Run("edit to a safe command is honored", func(t *testing.T) {
		prompt := &scriptedPrompt{decisions: []Decision{{
			Outcome:      OutcomeApprovedWithEdit,
			EditedTarget: "rm build/cache.tmp",
		}}}
		g, _ := newTestGate(prompt)

		req := fullConfidence(action.CapRunCommand, "rm -rf /")
		d, err := g.Authorize(context.Background(), req, risk.Assessment{
			Tier:    risk.TierDangerous,
			Reasons: []string{"recursive-delete"},
		})

		require.NoError(t, err)
		assert.Equal(t, OutcomeApprovedWithEdit, d.Outcome)
		assert.Equal(t, "rm build/cache.tmp", d.EditedTarget)
	})

	t.Run("edit that stays dangerous is denied", func(t *testing.T) {
		prompt := &scriptedPrompt{decisions: []Decision{{
			Outcome:      OutcomeApprovedWithEdit,
			EditedTarget: "sudo rm -rf /var",
		}}}
		g, _ := newTestGate(prompt)

		req := fullConfidence(action.CapRunCommand, "rm -rf /")
		d, err := g.Authorize(context.Background(), req, risk.Assessment{
			Tier:    risk.TierDangerous,
			Reasons: []string{"recursive-delete"},
		})

		require.NoError(t, err)
		assert.Equal(t, OutcomeDenied, d.Outcome)
		assert.Contains(t, d.Reason, "still dangerous")
	})
}

func TestModerateEditReclassified(t *testing.T) {
	t.Run("edit escalating to a dangerous command is denied", func(t *testing.T) {
		prompt := &scriptedPrompt{decisions: []Decision{{
			Outcome:      OutcomeApprovedWithEdit,
			EditedTarget: "rm -rf /",
		}}}
		g, _ := newTestGate(prompt)

		req := fullConfidence(action.CapRunCommand, "make build")
		d, err := g.Authorize(context.Background(), req, risk.Assessment{Tier: risk.TierModerate})

		require.NoError(t, err)
		assert.Equal(t, OutcomeDenied, d.Outcome)
		assert.Contains(t, d.Reason, "still dangerous")
	})

	t.Run("edit to another moderate command is honored", func(t *testing.T) {
		prompt := &scriptedPrompt{decisions: []Decision{{
			Outcome:      OutcomeApprovedWithEdit,
			EditedTarget: "make test",
		}}}
		g, _ := newTestGate(prompt)

		req := fullConfidence(action.CapRunCommand, "make build")
		d, err := g.Authorize(context.Background(), req, risk.Assessment{Tier: risk.TierModerate})

		require.NoError(t, err)
		assert.Equal(t, OutcomeApprovedWithEdit, d.Outcome)
		assert.Equal(t, "make test", d.EditedTarget)
	})

	t.Run("edited decisions are not remembered", func(t *testing.T) {
		prompt := &scriptedPrompt{decisions: []Decision{
			{Outcome: OutcomeApprovedWithEdit, EditedTarget: "make test"},
			{Outcome: OutcomeApproved},
		}}
		g, _ := newTestGate(prompt)

		req := fullConfidence(action.CapRunCommand, "make build")
		assessment := risk.Assessment{Tier: risk.TierModerate}

		_, err := g.Authorize(context.Background(), req, assessment)
		require.NoError(t, err)
		_, err = g.Authorize(context.Background(), req, assessment)
		require.NoError(t, err)

		assert.Len(t, prompt.asked, 2, "an edit does not seed session memory")
	})
}

func TestPromptFailureDenies(t *testing.T) {
	prompt := &scriptedPrompt{err: errors.New("approval channel down")}
	g, _ := newTestGate(prompt)

	req := fullConfidence(action.CapEditFile, "main.go")
	d, err := g.Authorize(context.Background(), req, risk.Assessment{Tier: risk.TierModerate})

	require.NoError(t, err, "prompt failure resolves to denial, not error")
	assert.Equal(t, OutcomeDenied, d.Outcome)
	assert.Contains(t, d.Reason, "approval unavailable")
}

func TestCancellationReturnsError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	prompt := &scriptedPrompt{err: context.Canceled}
	g, _ := newTestGate(prompt)

	req := fullConfidence(action.CapEditFile, "main.go")
	d, err := g.Authorize(ctx, req, risk.Assessment{Tier: risk.TierModerate})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, OutcomeDenied, d.Outcome)
}

func TestRateLimitedDenial(t *testing.T) {
	classifier := risk.NewClassifier("/ws", nil)
	log := audit.NewLog(nil)
	limiter := NewLimiter(map[string]Budget{
		ClassMutation: {Window: time.Minute, Max: 1, Burst: 1},
	})
	fakeClock(limiter)
	g := New(classifier, &scriptedPrompt{}, limiter, log, nil, nil)

	req := fullConfidence(action.CapCreateFile, "a.txt")
	d, err := g.Authorize(context.Background(), req, risk.Assessment{Tier: risk.TierSafe})
	require.NoError(t, err)
	require.Equal(t, OutcomeApproved, d.Outcome)

	d, err = g.Authorize(context.Background(), req, risk.Assessment{Tier: risk.TierSafe})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDenied, d.Outcome)
	assert.Contains(t, d.Reason, "rate limit")
	assert.Greater(t, d.RetryAfter, time.Duration(0))
	assert.Equal(t, 2, log.Len(), "rate-limit denial is audited")
}

func TestEveryDecisionAudited(t *testing.T) {
	prompt := &scriptedPrompt{decisions: []Decision{
		{Outcome: OutcomeApproved},
		{Outcome: OutcomeDenied},
	}}
	g, log := newTestGate(prompt)

	assessment := risk.Assessment{Tier: risk.TierModerate}
	_, err := g.Authorize(context.Background(), fullConfidence(action.CapEditFile, "a.go"), assessment)
	require.NoError(t, err)
	_, err = g.Authorize(context.Background(), fullConfidence(action.CapEditFile, "b.go"), assessment)
	require.NoError(t, err)

	records := log.Recent(0)
	require.Len(t, records, 2)
	assert.Equal(t, "approved", records[0].Outcome)
	assert.Equal(t, "denied", records[1].Outcome)
}

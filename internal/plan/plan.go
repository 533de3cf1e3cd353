// Package plan decomposes multi-action model responses into ordered task
// plans and drives them step by step with recovery policy.
package plan

import (
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/agentd/internal/action"
	"github.com/fyrsmithlabs/agentd/internal/gate"
	"github.com/fyrsmithlabs/agentd/internal/risk"
)

// Status is the lifecycle state of a plan.
type Status string

const (
	StatusPending         Status = "pending"
	StatusInProgress      Status = "in_progress"
	StatusCompleted       Status = "completed"
	StatusPartiallyFailed Status = "partially_failed"
	StatusAborted         Status = "aborted"
)

// Terminal reports whether a status is final.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusPartiallyFailed, StatusAborted:
		return true
	}
	return false
}

// Step is one plan entry. Assessment, Decision, and Result are filled in
// as the step moves through the pipeline.
type Step struct {
	Index      int              `json:"index"`
	Request    action.Request   `json:"request"`
	Assessment *risk.Assessment `json:"assessment,omitempty"`
	Decision   *gate.Decision   `json:"decision,omitempty"`
	Result     *action.Result   `json:"result,omitempty"`
}

// Plan is an ordered sequence of action requests executed as one logical
// task. A plan is owned by its executor for its lifetime and discarded
// once terminal; nothing is persisted.
type Plan struct {
	ID        string    `json:"plan_id"`
	CreatedAt time.Time `json:"created_at"`
	Status    Status    `json:"status"`
	Steps     []Step    `json:"steps"`
}

// Results collects the results of all steps that reached execution or
// were skipped, in step order.
func (p *Plan) Results() []action.Result {
	var out []action.Result
	for _, s := range p.Steps {
		if s.Result != nil {
			out = append(out, *s.Result)
		}
	}
	return out
}

// Planner builds plans from parsed requests. Decomposition adds no
// inference beyond what the parser already extracted: N requests from
// one response become one plan in extraction order.
type Planner struct{}

// Build creates a pending plan from requests in extraction order.
func (Planner) Build(reqs []action.Request) *Plan {
	p := &Plan{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		Status:    StatusPending,
		Steps:     make([]Step, len(reqs)),
	}
	for i, req := range reqs {
		p.Steps[i] = Step{Index: i, Request: req}
	}
	return p
}

// Package action defines the action request model and the parser that
// extracts candidate actions from model-generated text.
package action

// Capability names a category of side effect a tool can perform.
type Capability string

const (
	CapCreateFile     Capability = "create_file"
	CapEditFile       Capability = "edit_file"
	CapRunCommand     Capability = "run_command"
	CapCreateProject  Capability = "create_project"
	CapAnalyzeContent Capability = "analyze_content"
)

// Capabilities returns every registered capability in a stable order.
func Capabilities() []Capability {
	return []Capability{
		CapCreateFile,
		CapEditFile,
		CapRunCommand,
		CapCreateProject,
		CapAnalyzeContent,
	}
}

// ParseCapability maps a raw action name to a known capability.
// Unknown names are rejected at parse time, never executed.
func ParseCapability(s string) (Capability, bool) {
	switch Capability(s) {
	case CapCreateFile, CapEditFile, CapRunCommand, CapCreateProject, CapAnalyzeContent:
		return Capability(s), true
	}
	return "", false
}

// Confidence levels assigned by the parser paths.
const (
	// ConfidenceStructured marks a schema-matched structured block.
	ConfidenceStructured = 1.0

	// ConfidenceDirected marks a directed phrase match with an
	// accompanying code block.
	ConfidenceDirected = 0.8

	// ConfidenceInferred marks a directed phrase match whose content was
	// inferred from the phrase tail (no code block found).
	ConfidenceInferred = 0.7

	// ConfidenceImplicit marks a lone-code-block suggestion. Requests at
	// this level always require explicit confirmation downstream.
	ConfidenceImplicit = 0.6
)

// Span marks byte offsets into the original text a request was extracted
// from, used to strip consumed text when composing summaries.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Overlaps reports whether two spans share any bytes.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Request is a candidate side-effecting operation extracted from model
// text. It is not yet approved; every request passes risk classification
// and the security gate before execution.
type Request struct {
	Capability Capability `json:"capability"`
	Target     string     `json:"target"`
	Payload    string     `json:"payload,omitempty"`
	Rationale  string     `json:"rationale,omitempty"`
	Source     Span       `json:"source_span"`
	Confidence float64    `json:"confidence"`
}

// Full reports whether the request came from the structured-block path.
// Anything below full confidence follows the Moderate-or-stricter
// approval path regardless of its risk tier.
func (r Request) Full() bool {
	return r.Confidence >= ConfidenceStructured
}

// Status is the terminal state of one executed request.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// ErrorKind categorizes execution failures for retry policy.
type ErrorKind string

const (
	// KindTransient failures (lock/contention signals) are retried once.
	KindTransient ErrorKind = "transient"

	// KindPermanent failures (permission/path/validation) are never retried.
	KindPermanent ErrorKind = "permanent"

	// KindDenied marks a request rejected by the security gate.
	KindDenied ErrorKind = "denied"
)

// Error carries a categorized execution failure as data. Execution errors
// are returned in results, never raised across the orchestrator boundary.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Result is the outcome of executing one request.
type Result struct {
	Request Request `json:"request"`
	Status  Status  `json:"status"`
	Detail  string  `json:"detail,omitempty"`
	Err     *Error  `json:"error,omitempty"`
}

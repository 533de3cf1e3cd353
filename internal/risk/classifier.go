// Package risk classifies action requests into approval tiers using
// pattern rules. Classification is deterministic for identical inputs and
// probe results; the classifier itself performs no I/O.
package risk

import (
	"github.com/fyrsmithlabs/agentd/internal/action"
	"github.com/fyrsmithlabs/agentd/internal/sanitize"
)

// Tier is the risk level driving approval policy.
type Tier string

const (
	TierSafe      Tier = "safe"
	TierModerate  Tier = "moderate"
	TierDangerous Tier = "dangerous"
)

// Assessment is the immutable result attached to a request before
// execution.
type Assessment struct {
	Tier                 Tier     `json:"tier"`
	Reasons              []string `json:"reasons,omitempty"`
	SuggestedAlternative string   `json:"suggested_alternative,omitempty"`
}

// ExistsProbe reports whether a workspace path already exists. Injected
// so overwrite detection stays testable without touching the filesystem.
type ExistsProbe func(path string) bool

// Classifier assigns risk tiers to action requests.
type Classifier struct {
	root   string
	exists ExistsProbe
}

// NewClassifier creates a classifier confined to the given workspace
// root. exists may be nil, which disables overwrite detection.
func NewClassifier(root string, exists ExistsProbe) *Classifier {
	return &Classifier{root: root, exists: exists}
}

// Classify assigns a tier to one request. Denylist rules dominate: a
// command matching any destructive pattern is never classified below
// Dangerous, regardless of surrounding content.
func (c *Classifier) Classify(req action.Request) Assessment {
	switch req.Capability {
	case action.CapRunCommand:
		return c.classifyCommand(req.Target)
	case action.CapCreateFile, action.CapEditFile:
		return c.classifyFileTarget(req.Target)
	default: // create_project, analyze_content
		if sanitize.ContainsTraversal(req.Target) {
			return Assessment{Tier: TierDangerous, Reasons: []string{"path-traversal"}}
		}
		return Assessment{Tier: TierSafe}
	}
}

func (c *Classifier) classifyCommand(cmdline string) Assessment {
	var reasons []string
	alternative := ""
	for _, rule := range denyRules {
		if rule.re.MatchString(cmdline) {
			reasons = append(reasons, rule.Name)
			if alternative == "" {
				alternative = rule.Alternative
			}
		}
	}
	if len(reasons) > 0 {
		return Assessment{
			Tier:                 TierDangerous,
			Reasons:              reasons,
			SuggestedAlternative: alternative,
		}
	}

	if isReadOnlyCommand(cmdline) {
		return Assessment{Tier: TierSafe, Reasons: []string{"read-only-command"}}
	}
	return Assessment{Tier: TierModerate}
}

func (c *Classifier) classifyFileTarget(target string) Assessment {
	resolved, err := sanitize.ResolveWithin(target, c.root)
	if err != nil {
		return Assessment{Tier: TierDangerous, Reasons: []string{"path-traversal"}}
	}

	if matchSecretTarget(target) {
		return Assessment{
			Tier:                 TierDangerous,
			Reasons:              []string{"secret-target"},
			SuggestedAlternative: "keep credentials out of agent-managed files",
		}
	}

	if c.exists != nil && c.exists(resolved) {
		return Assessment{Tier: TierModerate, Reasons: []string{"overwrite-existing"}}
	}
	return Assessment{Tier: TierSafe}
}

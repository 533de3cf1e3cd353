package orchestrator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/agentd/internal/action"
)

// composeSummary rewrites the model text for display: spans consumed by
// executed requests are stripped, and one status line per result is
// appended so the reader sees what actually happened rather than what
// the model announced.
func composeSummary(text string, reqs []action.Request, results []action.Result) string {
	spans := make([]action.Span, 0, len(reqs))
	for _, r := range reqs {
		if r.Source.End > r.Source.Start {
			spans = append(spans, r.Source)
		}
	}

	summary := strings.TrimSpace(collapseBlank(stripSpans(text, spans)))

	var b strings.Builder
	if summary != "" {
		b.WriteString(summary)
	}
	for _, res := range results {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(statusLine(res))
	}
	return b.String()
}

// stripSpans removes the byte ranges in spans from text. Overlapping
// spans are merged first so each byte is removed at most once.
func stripSpans(text string, spans []action.Span) string {
	if len(spans) == 0 {
		return text
	}

	merged := make([]action.Span, len(spans))
	copy(merged, spans)
	sort.Slice(merged, func(i, j int) bool { return merged[i].Start < merged[j].Start })

	var b strings.Builder
	pos := 0
	for _, s := range merged {
		start, end := s.Start, s.End
		if start < pos {
			start = pos
		}
		if end > len(text) {
			end = len(text)
		}
		if start >= end {
			continue
		}
		b.WriteString(text[pos:start])
		pos = end
	}
	if pos < len(text) {
		b.WriteString(text[pos:])
	}
	return b.String()
}

// collapseBlank squeezes runs of blank lines left behind by span removal
// down to a single blank line.
func collapseBlank(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	blank := false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			if blank {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func statusLine(res action.Result) string {
	what := describe(res.Request)
	switch res.Status {
	case action.StatusSuccess:
		if res.Detail != "" {
			return "Action completed: " + res.Detail
		}
		return "Action completed: " + what
	case action.StatusSkipped:
		reason := ""
		if res.Err != nil {
			reason = ": " + res.Err.Message
		}
		return "Action denied: " + what + reason
	default:
		reason := ""
		if res.Err != nil {
			reason = ": " + res.Err.Message
		}
		return "Action failed: " + what + reason
	}
}

func describe(req action.Request) string {
	switch req.Capability {
	case action.CapCreateFile:
		return fmt.Sprintf("create file %s", req.Target)
	case action.CapEditFile:
		return fmt.Sprintf("edit file %s", req.Target)
	case action.CapRunCommand:
		return fmt.Sprintf("run command %q", req.Target)
	case action.CapCreateProject:
		return fmt.Sprintf("create project %s", req.Target)
	case action.CapAnalyzeContent:
		return fmt.Sprintf("analyze %s", req.Target)
	default:
		return string(req.Capability)
	}
}

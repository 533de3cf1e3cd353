package action

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentd/internal/telemetry"
)

// Parser extracts action requests from raw model text.
//
// Detection runs in priority order: structured JSON blocks first, then
// directed natural-language templates, then implicit lone-code-block
// inference. Structured spans strictly dominate; the natural-language and
// implicit paths fire at most once per parse. Unparseable text yields an
// empty slice, never an error.
type Parser struct {
	logger  *zap.Logger
	metrics *telemetry.Metrics
}

// NewParser creates a parser. logger may be nil; metrics may be nil.
func NewParser(logger *zap.Logger, metrics *telemetry.Metrics) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger, metrics: metrics}
}

// Parse turns one raw model response into zero or more requests.
func (p *Parser) Parse(raw string) []Request {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	blocks := findFences(raw)

	var reqs []Request
	usedBlocks := make(map[int]bool)

	// Priority 1: structured blocks. Each valid block produces an
	// independent request; malformed blocks are skipped, not fatal.
	for i, b := range blocks {
		if !isStructuredTag(b.Lang) {
			continue
		}
		req, ok := p.parseStructured(raw, b)
		if !ok {
			continue
		}
		reqs = append(reqs, req)
		usedBlocks[i] = true
	}

	consumed := make([]Span, 0, len(reqs))
	for _, r := range reqs {
		consumed = append(consumed, r.Source)
	}

	// Priority 2: directed natural-language templates, first match wins.
	if req, blockIdx, ok := matchDirected(raw, blocks, consumed, usedBlocks); ok {
		reqs = append(reqs, req)
		if blockIdx >= 0 {
			usedBlocks[blockIdx] = true
		}
		p.count("directed")
	} else if len(reqs) == 0 {
		// Priority 3: implicit inference, only when nothing else matched.
		if req, ok := inferImplicit(raw, blocks); ok {
			reqs = append(reqs, req)
			p.count("implicit")
		}
	}

	for _, r := range reqs {
		if r.Confidence >= ConfidenceStructured {
			p.count("structured")
		}
	}
	if len(reqs) > 0 {
		p.logger.Debug("parsed action requests",
			zap.Int("count", len(reqs)),
			zap.Int("fenced_blocks", len(blocks)),
		)
	}
	return reqs
}

func (p *Parser) count(path string) {
	p.metrics.IncActionsParsed(path)
}

// fence is one fenced code block in the raw text.
type fence struct {
	Lang string
	Body string
	Span Span // includes the opening and closing backticks
}

// findFences scans for triple-backtick blocks. Nested fences are not
// supported; a block is read up to the first closing fence.
func findFences(s string) []fence {
	var fences []fence
	i := 0
	for {
		open := strings.Index(s[i:], "```")
		if open < 0 {
			break
		}
		open += i

		nl := strings.IndexByte(s[open+3:], '\n')
		if nl < 0 {
			break
		}
		lang := strings.TrimSpace(s[open+3 : open+3+nl])
		bodyStart := open + 3 + nl + 1

		closing := strings.Index(s[bodyStart:], "```")
		if closing < 0 {
			break
		}
		bodyEnd := bodyStart + closing
		end := bodyEnd + 3

		body := strings.TrimSuffix(s[bodyStart:bodyEnd], "\n")
		fences = append(fences, fence{Lang: lang, Body: body, Span: Span{Start: open, End: end}})
		i = end
	}
	return fences
}

// isStructuredTag reports whether a fence tag marks a data-interchange block.
func isStructuredTag(lang string) bool {
	return strings.EqualFold(lang, "json")
}

// structuredBlock is the accepted wire shape of a structured action block.
type structuredBlock struct {
	Action    string          `json:"action"`
	Params    json.RawMessage `json:"params"`
	Rationale string          `json:"rationale"`
}

// structuredParams covers the parameter fields of every capability.
type structuredParams struct {
	Path      string `json:"path"`
	Content   string `json:"content"`
	Command   string `json:"command"`
	Args      string `json:"args"`
	Name      string `json:"name"`
	Template  string `json:"template"`
	Rationale string `json:"rationale"`
	Reason    string `json:"reason"`
}

// parseStructured validates one structured block. Returns false when the
// JSON is malformed, the action name is unrecognized, or a required
// parameter is missing.
func (p *Parser) parseStructured(raw string, b fence) (Request, bool) {
	var blk structuredBlock
	if err := json.Unmarshal([]byte(b.Body), &blk); err != nil {
		p.logger.Debug("skipping malformed structured block", zap.Error(err))
		return Request{}, false
	}
	if blk.Action == "" || len(blk.Params) == 0 {
		return Request{}, false
	}

	capability, ok := ParseCapability(blk.Action)
	if !ok {
		// Unrecognized capability: dropped silently, debug log only.
		p.logger.Debug("dropping unrecognized capability", zap.String("action", blk.Action))
		return Request{}, false
	}

	var params structuredParams
	if err := json.Unmarshal(blk.Params, &params); err != nil {
		p.logger.Debug("skipping structured block with invalid params", zap.Error(err))
		return Request{}, false
	}

	req := Request{
		Capability: capability,
		Rationale:  blk.Rationale,
		Source:     b.Span,
		Confidence: ConfidenceStructured,
	}
	if req.Rationale == "" {
		req.Rationale = firstNonEmpty(params.Rationale, params.Reason)
	}

	switch capability {
	case CapCreateFile, CapEditFile:
		if params.Path == "" {
			return Request{}, false
		}
		req.Target = params.Path
		req.Payload = params.Content // defaults to empty when absent
	case CapRunCommand:
		if params.Command == "" {
			return Request{}, false
		}
		req.Target = params.Command
		req.Payload = params.Args
	case CapCreateProject:
		if params.Name == "" {
			return Request{}, false
		}
		req.Target = params.Name
		req.Payload = params.Template
	case CapAnalyzeContent:
		if params.Path == "" {
			return Request{}, false
		}
		req.Target = params.Path
	}
	return req, true
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

package action

import (
	"regexp"
	"strings"
)

// directedMatcher is one named natural-language strategy. Matchers are
// tried in priority order and the first hit wins; at most one directed
// request is produced per parse to avoid duplicate low-confidence results.
type directedMatcher struct {
	Name       string
	Capability Capability
	re         *regexp.Regexp
}

var directedMatchers = []directedMatcher{
	{
		Name:       "create-file-called",
		Capability: CapCreateFile,
		re:         regexp.MustCompile("(?i)(?:i'?ll|i will|let me) create (?:a |the )?(?:new )?file (?:called|named) `?([\\w./-]+)`?"),
	},
	{
		Name:       "edit-file",
		Capability: CapEditFile,
		re:         regexp.MustCompile("(?i)(?:i'?ll|i will|let me) (?:edit|update|modify) (?:the file )?`?([\\w./-]+\\.[\\w]+)`?"),
	},
	{
		Name:       "run-command",
		Capability: CapRunCommand,
		re:         regexp.MustCompile("(?i)(?:i'?ll|i will|let me) run `([^`\n]+)`"),
	},
}

// contentTail extracts inline content following a directed phrase, e.g.
// "... containing hello world". Used when no code block follows the match.
var contentTail = regexp.MustCompile(`(?i)^[^\n]*?(?:containing|with the (?:following )?content:?|with the text)\s*"?([^"\n]*)"?`)

// matchDirected tries each directed strategy in order against text not
// already consumed by structured blocks. When a template matches, the
// nearest following unused code block becomes the payload.
func matchDirected(raw string, blocks []fence, consumed []Span, usedBlocks map[int]bool) (Request, int, bool) {
	for _, m := range directedMatchers {
		loc := m.re.FindStringSubmatchIndex(raw)
		if loc == nil {
			continue
		}
		span := Span{Start: loc[0], End: loc[1]}
		if overlapsAny(span, consumed) {
			continue
		}

		req := Request{
			Capability: m.Capability,
			Target:     strings.Trim(raw[loc[2]:loc[3]], "`"),
			Rationale:  lineAround(raw, loc[0]),
			Confidence: ConfidenceInferred,
			Source:     span,
		}

		if m.Capability == CapRunCommand {
			// The captured backtick content is the whole command line.
			req.Confidence = ConfidenceDirected
			return req, -1, true
		}

		// Nearest following fenced block (any tag) supplies the payload.
		blockIdx := -1
		for i, b := range blocks {
			if usedBlocks[i] || b.Span.Start < loc[1] {
				continue
			}
			blockIdx = i
			break
		}
		if blockIdx >= 0 {
			req.Payload = blocks[blockIdx].Body
			req.Confidence = ConfidenceDirected
			req.Source.End = blocks[blockIdx].Span.End
			return req, blockIdx, true
		}

		// No code block: infer content from the phrase tail.
		if tail := contentTail.FindStringSubmatch(raw[loc[1]:]); tail != nil {
			req.Payload = strings.TrimSpace(tail[1])
			req.Source.End = loc[1] + len(tail[0])
		}
		return req, -1, true
	}
	return Request{}, -1, false
}

// implicitName extracts a file name from "save as" / "call it" phrasing.
var implicitName = regexp.MustCompile("(?i)(?:save (?:it |this )?as|call it|name it)\\s+`?([\\w./-]+)`?")

// cueWords are the prose cues that allow implicit create_file inference.
var cueWords = []string{"file", "save", "create"}

// langExtensions maps fence language tags to file extension hints for
// the placeholder name used when no explicit name is present.
var langExtensions = map[string]string{
	"javascript": ".js",
	"js":         ".js",
	"typescript": ".ts",
	"ts":         ".ts",
	"python":     ".py",
	"py":         ".py",
	"go":         ".go",
	"golang":     ".go",
	"rust":       ".rs",
	"java":       ".java",
	"ruby":       ".rb",
	"sh":         ".sh",
	"bash":       ".sh",
	"shell":      ".sh",
	"html":       ".html",
	"css":        ".css",
	"json":       ".json",
	"yaml":       ".yaml",
	"yml":        ".yaml",
	"sql":        ".sql",
	"c":          ".c",
	"cpp":        ".cpp",
}

// inferImplicit emits a low-confidence create_file suggestion when the
// text contains exactly one fenced block and a file-creation cue word in
// the surrounding prose. The result is a suggestion only: it always
// requires downstream confirmation regardless of risk tier.
func inferImplicit(raw string, blocks []fence) (Request, bool) {
	if len(blocks) != 1 {
		return Request{}, false
	}
	b := blocks[0]

	prose := strings.ToLower(raw[:b.Span.Start] + raw[b.Span.End:])
	hasCue := false
	for _, cue := range cueWords {
		if containsWord(prose, cue) {
			hasCue = true
			break
		}
	}
	if !hasCue {
		return Request{}, false
	}

	name := ""
	if m := implicitName.FindStringSubmatch(raw); m != nil {
		name = m[1]
	}
	if name == "" {
		ext := langExtensions[strings.ToLower(b.Lang)]
		if ext == "" {
			ext = ".txt"
		}
		name = "snippet" + ext
	}

	return Request{
		Capability: CapCreateFile,
		Target:     name,
		Payload:    b.Body,
		Rationale:  lineAround(raw, b.Span.Start),
		Source:     b.Span,
		Confidence: ConfidenceImplicit,
	}, true
}

func overlapsAny(s Span, spans []Span) bool {
	for _, o := range spans {
		if s.Overlaps(o) {
			return true
		}
	}
	return false
}

// containsWord reports a whole-word, case-insensitive match.
func containsWord(s, word string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], word)
		if i < 0 {
			return false
		}
		i += idx
		before := i == 0 || !isWordByte(s[i-1])
		afterIdx := i + len(word)
		after := afterIdx >= len(s) || !isWordByte(s[afterIdx])
		if before && after {
			return true
		}
		idx = i + len(word)
	}
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// lineAround returns the surrounding line of an offset, used as the
// extracted rationale for natural-language matches.
func lineAround(s string, off int) string {
	start := strings.LastIndexByte(s[:off], '\n') + 1
	end := strings.IndexByte(s[off:], '\n')
	if end < 0 {
		end = len(s)
	} else {
		end += off
	}
	return strings.TrimSpace(s[start:end])
}

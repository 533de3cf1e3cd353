package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStructuredBlock(t *testing.T) {
	p := NewParser(nil, nil)

	raw := "I'll set that up.\n" +
		"```json\n" +
		`{"action": "create_file", "params": {"path": "hello.py", "content": "print('hi')\n"}, "rationale": "user asked for a greeting script"}` + "\n" +
		"```\n"

	reqs := p.Parse(raw)
	require.Len(t, reqs, 1)

	req := reqs[0]
	assert.Equal(t, CapCreateFile, req.Capability)
	assert.Equal(t, "hello.py", req.Target)
	assert.Equal(t, "print('hi')\n", req.Payload)
	assert.Equal(t, "user asked for a greeting script", req.Rationale)
	assert.Equal(t, ConfidenceStructured, req.Confidence)
	assert.True(t, req.Full())
	assert.Equal(t, "```json", raw[req.Source.Start:req.Source.Start+7])
}

func TestParseStructuredVariants(t *testing.T) {
	p := NewParser(nil, nil)

	tests := []struct {
		name       string
		body       string
		capability Capability
		target     string
		payload    string
	}{
		{
			name:       "run_command with args",
			body:       `{"action": "run_command", "params": {"command": "ls", "args": "-la"}}`,
			capability: CapRunCommand,
			target:     "ls",
			payload:    "-la",
		},
		{
			name:       "create_project with template",
			body:       `{"action": "create_project", "params": {"name": "demo", "template": "cli"}}`,
			capability: CapCreateProject,
			target:     "demo",
			payload:    "cli",
		},
		{
			name:       "analyze_content",
			body:       `{"action": "analyze_content", "params": {"path": "notes.md"}}`,
			capability: CapAnalyzeContent,
			target:     "notes.md",
		},
		{
			name:       "content absent defaults to empty",
			body:       `{"action": "create_file", "params": {"path": "empty.txt"}}`,
			capability: CapCreateFile,
			target:     "empty.txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reqs := p.Parse("```json\n" + tt.body + "\n```\n")
			require.Len(t, reqs, 1)
			assert.Equal(t, tt.capability, reqs[0].Capability)
			assert.Equal(t, tt.target, reqs[0].Target)
			assert.Equal(t, tt.payload, reqs[0].Payload)
			assert.Equal(t, ConfidenceStructured, reqs[0].Confidence)
		})
	}
}

func TestParseRejectsBadStructuredBlocks(t *testing.T) {
	p := NewParser(nil, nil)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"action": "create_file", "params":`},
		{"unknown action", `{"action": "delete_everything", "params": {"path": "x"}}`},
		{"missing path", `{"action": "create_file", "params": {"content": "x"}}`},
		{"missing command", `{"action": "run_command", "params": {"args": "-la"}}`},
		{"missing name", `{"action": "create_project", "params": {"template": "cli"}}`},
		{"empty params", `{"action": "create_file"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// No prose cues around the block, so nothing falls through to
			// the implicit path either.
			reqs := p.Parse("Here you go.\n```json\n" + tt.body + "\n```\n")
			assert.Empty(t, reqs)
		})
	}
}

func TestParseMultipleStructuredBlocks(t *testing.T) {
	p := NewParser(nil, nil)

	raw := "Two steps:\n" +
		"```json\n" +
		`{"action": "create_file", "params": {"path": "a.txt", "content": "A"}}` + "\n" +
		"```\n" +
		"then\n" +
		"```json\n" +
		`{"action": "run_command", "params": {"command": "cat a.txt"}}` + "\n" +
		"```\n"

	reqs := p.Parse(raw)
	require.Len(t, reqs, 2)
	assert.Equal(t, CapCreateFile, reqs[0].Capability)
	assert.Equal(t, CapRunCommand, reqs[1].Capability)
	assert.False(t, reqs[0].Source.Overlaps(reqs[1].Source))
}

func TestParseDirectedWithCodeBlock(t *testing.T) {
	p := NewParser(nil, nil)

	raw := "I'll create a new file called `hello.py` with the greeting:\n" +
		"```python\n" +
		"print('hi')\n" +
		"```\n"

	reqs := p.Parse(raw)
	require.Len(t, reqs, 1)

	req := reqs[0]
	assert.Equal(t, CapCreateFile, req.Capability)
	assert.Equal(t, "hello.py", req.Target)
	assert.Equal(t, "print('hi')", req.Payload)
	assert.Equal(t, ConfidenceDirected, req.Confidence)
	assert.False(t, req.Full())
	// Span stretches from the phrase through the consumed block.
	assert.Equal(t, 0, req.Source.Start)
	assert.Equal(t, len(raw)-1, req.Source.End)
}

func TestParseDirectedWithInlineContent(t *testing.T) {
	p := NewParser(nil, nil)

	raw := "Let me create a file called notes.txt containing \"remember the milk\" for you."

	reqs := p.Parse(raw)
	require.Len(t, reqs, 1)
	assert.Equal(t, CapCreateFile, reqs[0].Capability)
	assert.Equal(t, "notes.txt", reqs[0].Target)
	assert.Equal(t, "remember the milk", reqs[0].Payload)
	assert.Equal(t, ConfidenceInferred, reqs[0].Confidence)
}

func TestParseDirectedRunCommand(t *testing.T) {
	p := NewParser(nil, nil)

	reqs := p.Parse("Let me run `ls -la` to check the directory.")
	require.Len(t, reqs, 1)
	assert.Equal(t, CapRunCommand, reqs[0].Capability)
	assert.Equal(t, "ls -la", reqs[0].Target)
	assert.Equal(t, ConfidenceDirected, reqs[0].Confidence)
}

func TestParseDirectedEditFile(t *testing.T) {
	p := NewParser(nil, nil)

	raw := "I'll update `config.yaml` with the new port:\n" +
		"```yaml\n" +
		"port: 9000\n" +
		"```\n"

	reqs := p.Parse(raw)
	require.Len(t, reqs, 1)
	assert.Equal(t, CapEditFile, reqs[0].Capability)
	assert.Equal(t, "config.yaml", reqs[0].Target)
	assert.Equal(t, "port: 9000", reqs[0].Payload)
}

func TestParseDirectedFiresAtMostOnce(t *testing.T) {
	p := NewParser(nil, nil)

	raw := "I'll create a new file called one.txt containing \"a\". " +
		"I'll create a new file called two.txt containing \"b\"."

	reqs := p.Parse(raw)
	require.Len(t, reqs, 1)
	assert.Equal(t, "one.txt", reqs[0].Target)
}

func TestParseStructuredDominatesDirected(t *testing.T) {
	p := NewParser(nil, nil)

	// The directed phrase sits inside the structured block's rationale,
	// so its span overlaps consumed text and must not fire again.
	raw := "```json\n" +
		`{"action": "create_file", "params": {"path": "x.txt", "content": "x"}, "rationale": "I'll create a new file called x.txt"}` + "\n" +
		"```\n"

	reqs := p.Parse(raw)
	require.Len(t, reqs, 1)
	assert.Equal(t, ConfidenceStructured, reqs[0].Confidence)
}

func TestParseImplicitSuggestion(t *testing.T) {
	p := NewParser(nil, nil)

	t.Run("named via save-as phrase", func(t *testing.T) {
		raw := "You can save it as `todo.py`:\n" +
			"```python\n" +
			"print('todo')\n" +
			"```\n"

		reqs := p.Parse(raw)
		require.Len(t, reqs, 1)
		assert.Equal(t, CapCreateFile, reqs[0].Capability)
		assert.Equal(t, "todo.py", reqs[0].Target)
		assert.Equal(t, "print('todo')", reqs[0].Payload)
		assert.Equal(t, ConfidenceImplicit, reqs[0].Confidence)
	})

	t.Run("placeholder name from language tag", func(t *testing.T) {
		raw := "Here is the file you wanted:\n" +
			"```go\n" +
			"package main\n" +
			"```\n"

		reqs := p.Parse(raw)
		require.Len(t, reqs, 1)
		assert.Equal(t, "snippet.go", reqs[0].Target)
	})

	t.Run("unknown language falls back to txt", func(t *testing.T) {
		raw := "Save this somewhere:\n" +
			"```\n" +
			"some notes\n" +
			"```\n"

		reqs := p.Parse(raw)
		require.Len(t, reqs, 1)
		assert.Equal(t, "snippet.txt", reqs[0].Target)
	})

	t.Run("no cue word yields nothing", func(t *testing.T) {
		raw := "An example for illustration:\n" +
			"```python\n" +
			"print('hi')\n" +
			"```\n"

		assert.Empty(t, p.Parse(raw))
	})

	t.Run("two blocks suppress inference", func(t *testing.T) {
		raw := "Two files here:\n" +
			"```python\nprint(1)\n```\n" +
			"```python\nprint(2)\n```\n"

		assert.Empty(t, p.Parse(raw))
	})

	t.Run("cue inside block does not count", func(t *testing.T) {
		raw := "An example:\n" +
			"```python\n" +
			"open('file')\n" +
			"```\n"

		assert.Empty(t, p.Parse(raw))
	})
}

func TestParsePlainChat(t *testing.T) {
	p := NewParser(nil, nil)

	assert.Empty(t, p.Parse(""))
	assert.Empty(t, p.Parse("   \n\t  "))
	assert.Empty(t, p.Parse("The capital of France is Paris."))
	assert.Empty(t, p.Parse("Unclosed fence:\n```python\nprint('hi')\n"))
}

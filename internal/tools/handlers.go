package tools

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/fyrsmithlabs/agentd/internal/action"
	"github.com/fyrsmithlabs/agentd/internal/sanitize"
)

// maxCaptureBytes bounds command output captured into result detail.
const maxCaptureBytes = 4096

// createFile writes a new file. Overwrite approval happened upstream at
// the risk/gate stage; the handler does not re-check.
func createFile(ctx context.Context, req action.Request, ws WorkspaceProvider) (string, error) {
	if err := ws.WriteFile(ctx, req.Target, req.Payload); err != nil {
		return "", fmt.Errorf("writing %s: %w", req.Target, err)
	}
	return fmt.Sprintf("created file %s (%d bytes)", req.Target, len(req.Payload)), nil
}

// editFile reads the current content, previews a diff when the provider
// supports it, then writes the new content.
func editFile(ctx context.Context, req action.Request, ws WorkspaceProvider) (string, error) {
	current, err := ws.ReadFile(ctx, req.Target)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", req.Target, err)
	}
	if current == req.Payload {
		return fmt.Sprintf("no changes to %s", req.Target), nil
	}

	preview := ""
	if previewer, ok := ws.(DiffPreviewer); ok {
		diff, err := previewer.PreviewDiff(ctx, req.Target, req.Payload)
		if err == nil && diff != "" {
			preview = "\n" + truncate(diff, maxCaptureBytes)
		}
	}

	if err := ws.WriteFile(ctx, req.Target, req.Payload); err != nil {
		return "", fmt.Errorf("writing %s: %w", req.Target, err)
	}
	return fmt.Sprintf("updated file %s (%d bytes)%s", req.Target, len(req.Payload), preview), nil
}

// runCommand executes a command line and captures bounded output.
func runCommand(ctx context.Context, req action.Request, ws WorkspaceProvider) (string, error) {
	cmdline := req.Target
	if req.Payload != "" {
		cmdline += " " + req.Payload
	}

	out, err := ws.RunCommand(ctx, cmdline)
	if err != nil {
		return "", fmt.Errorf("running command: %w", err)
	}

	detail := formatCommandOutput(out)
	if out.ExitCode != 0 {
		return detail, fmt.Errorf("command exited with status %d: %w", out.ExitCode, ErrIO)
	}
	return detail, nil
}

func formatCommandOutput(out CommandOutput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "exit %d", out.ExitCode)
	if s := strings.TrimSpace(out.Stdout); s != "" {
		b.WriteString("\nstdout:\n")
		b.WriteString(truncate(s, maxCaptureBytes))
	}
	if s := strings.TrimSpace(out.Stderr); s != "" {
		b.WriteString("\nstderr:\n")
		b.WriteString(truncate(s, maxCaptureBytes))
	}
	return b.String()
}

// projectFile is one entry of a project skeleton.
type projectFile struct {
	path    string
	content string
}

// projectTemplates are the fixed skeletons createProject can lay down.
var projectTemplates = map[string][]projectFile{
	"web-app": {
		{"index.html", "<!DOCTYPE html>\n<html>\n<head>\n  <meta charset=\"utf-8\">\n  <title>New Project</title>\n  <link rel=\"stylesheet\" href=\"styles.css\">\n</head>\n<body>\n  <h1>New Project</h1>\n  <script src=\"app.js\"></script>\n</body>\n</html>\n"},
		{"styles.css", "body {\n  font-family: sans-serif;\n  margin: 2rem;\n}\n"},
		{"app.js", "document.addEventListener('DOMContentLoaded', () => {\n  console.log('ready');\n});\n"},
		{"README.md", "# New Project\n"},
	},
	"cli": {
		{"main.go", "package main\n\nimport \"fmt\"\n\nfunc main() {\n\tfmt.Println(\"hello\")\n}\n"},
		{"README.md", "# New CLI\n"},
	},
}

// DefaultProjectTemplate is used when a request names no template.
const DefaultProjectTemplate = "web-app"

// createProject lays down a fixed directory/file skeleton. The sequence
// runs inline; it is not exposed to the caller as a separate plan.
func createProject(ctx context.Context, req action.Request, ws WorkspaceProvider) (string, error) {
	if err := sanitize.ValidateProjectName(req.Target); err != nil {
		return "", fmt.Errorf("project name %q: %w", req.Target, err)
	}

	template := req.Payload
	if template == "" {
		template = DefaultProjectTemplate
	}
	files, ok := projectTemplates[template]
	if !ok {
		return "", fmt.Errorf("unknown project template %q", template)
	}

	for _, f := range files {
		target := path.Join(req.Target, f.path)
		if err := ws.WriteFile(ctx, target, f.content); err != nil {
			return "", fmt.Errorf("writing %s: %w", target, err)
		}
	}
	return fmt.Sprintf("created project %s (template %s, %d files)", req.Target, template, len(files)), nil
}

// analyzeContent summarizes a file without mutating anything.
func analyzeContent(ctx context.Context, req action.Request, ws WorkspaceProvider) (string, error) {
	content, err := ws.ReadFile(ctx, req.Target)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", req.Target, err)
	}

	lines := 0
	if content != "" {
		lines = strings.Count(content, "\n")
		if !strings.HasSuffix(content, "\n") {
			lines++
		}
	}

	lang := languageOf(req.Target)
	return fmt.Sprintf("analyzed %s: %d lines, %d bytes, %s", req.Target, lines, len(content), lang), nil
}

// languageOf guesses a display language from the file extension.
func languageOf(target string) string {
	switch strings.ToLower(path.Ext(target)) {
	case ".go":
		return "Go"
	case ".js", ".mjs":
		return "JavaScript"
	case ".ts":
		return "TypeScript"
	case ".py":
		return "Python"
	case ".rs":
		return "Rust"
	case ".java":
		return "Java"
	case ".rb":
		return "Ruby"
	case ".sh":
		return "shell"
	case ".html":
		return "HTML"
	case ".css":
		return "CSS"
	case ".json":
		return "JSON"
	case ".yaml", ".yml":
		return "YAML"
	case ".md":
		return "Markdown"
	default:
		return "plain text"
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n[truncated]"
}

package risk

import (
	"regexp"
	"strings"
)

// denyRule is one named destructive-command pattern. Matching any deny
// rule classifies a command Dangerous regardless of anything else.
type denyRule struct {
	Name        string
	Alternative string
	re          *regexp.Regexp
}

var denyRules = []denyRule{
	{
		Name:        "recursive-delete",
		Alternative: "remove the specific files you need, without -rf",
		re:          regexp.MustCompile(`(?i)\brm\s+(?:-+[a-z]+\s+)*-+[a-z]*(?:r[a-z]*f|f[a-z]*r)\b`),
	},
	{
		Name:        "permission-broadening",
		Alternative: "grant the narrowest mode that works, e.g. chmod 644",
		re:          regexp.MustCompile(`(?i)\bchmod\s+(?:-+[a-z]+\s+)*(?:777|a\+rwx|o\+w)\b`),
	},
	{
		Name: "ownership-change",
		re:   regexp.MustCompile(`(?i)\bchown\b`),
	},
	{
		Name:        "privilege-escalation",
		Alternative: "run the command without sudo inside the workspace",
		re:          regexp.MustCompile(`(?i)(?:^|[;&|]\s*)(?:sudo|doas|su)\b`),
	},
	{
		Name:        "download-pipe-interpreter",
		Alternative: "download to a file and inspect it before running",
		re:          regexp.MustCompile(`(?i)\b(?:curl|wget)\b[^|;]*\|\s*(?:(?:ba|z|da|fi)?sh|python3?|perl|ruby|node)\b`),
	},
	{
		Name: "disk-overwrite",
		re:   regexp.MustCompile(`(?i)\bmkfs\b|\bdd\b[^|;]*\bof=/dev/`),
	},
	{
		Name: "fork-bomb",
		re:   regexp.MustCompile(`:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;`),
	},
	{
		Name: "system-power",
		re:   regexp.MustCompile(`(?i)(?:^|[;&|]\s*)(?:shutdown|reboot|halt|poweroff)\b`),
	},
	{
		Name: "root-delete",
		re:   regexp.MustCompile(`(?i)\brm\b[^;|&]*\s/(?:\s|$)`),
	},
}

// readOnlyCommands is the allowlist of inspection commands considered
// Safe when they appear as the first token of a command line.
var readOnlyCommands = map[string]bool{
	"ls": true, "cat": true, "head": true, "tail": true, "pwd": true,
	"echo": true, "wc": true, "which": true, "whoami": true, "date": true,
	"env": true, "printenv": true, "file": true, "stat": true, "du": true,
	"df": true, "uname": true, "grep": true, "rg": true, "tree": true,
}

// readOnlyGitSubcommands are git invocations that only inspect state.
var readOnlyGitSubcommands = map[string]bool{
	"status": true, "log": true, "diff": true, "show": true,
	"branch": true, "remote": true, "blame": true,
}

// isReadOnlyCommand reports whether a full command line is on the
// allowlist. Pipes, redirections, and chaining disqualify a command from
// the allowlist because the composed effect is no longer read-only.
func isReadOnlyCommand(cmdline string) bool {
	trimmed := strings.TrimSpace(cmdline)
	if trimmed == "" {
		return false
	}
	if strings.ContainsAny(trimmed, "|&;><`$") {
		return false
	}

	fields := strings.Fields(trimmed)
	head := fields[0]

	if head == "git" {
		return len(fields) > 1 && readOnlyGitSubcommands[fields[1]]
	}
	if head == "find" {
		// find mutates via -delete and escapes via -exec.
		for _, f := range fields[1:] {
			if f == "-delete" || f == "-exec" || f == "-execdir" || f == "-ok" {
				return false
			}
		}
		return true
	}
	return readOnlyCommands[head]
}

// secretFilePatterns flag credential-looking target names. Creating or
// editing these is Dangerous regardless of location.
var secretFilePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:^|/)\.env(?:\.|$)`),
	regexp.MustCompile(`(?i)(?:^|/)\.env$`),
	regexp.MustCompile(`(?i)(?:^|/)id_(?:rsa|ed25519|ecdsa|dsa)`),
	regexp.MustCompile(`(?i)\.(?:pem|key|p12|pfx)$`),
	regexp.MustCompile(`(?i)(?:^|/)credentials?(?:\.|$)`),
	regexp.MustCompile(`(?i)secret`),
	regexp.MustCompile(`(?i)(?:^|/)\.netrc$`),
	regexp.MustCompile(`(?i)(?:^|/)\.npmrc$`),
	regexp.MustCompile(`(?i)(?:^|/)\.(?:aws|ssh|gnupg)(?:/|$)`),
	regexp.MustCompile(`(?i)token`),
}

// matchSecretTarget returns true when a file target looks like it holds
// credentials or key material.
func matchSecretTarget(target string) bool {
	for _, re := range secretFilePatterns {
		if re.MatchString(target) {
			return true
		}
	}
	return false
}

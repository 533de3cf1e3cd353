// Package workspace implements the local-filesystem workspace provider
// used by the action handlers.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pmezard/go-difflib/difflib"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentd/internal/sanitize"
	"github.com/fyrsmithlabs/agentd/internal/tools"
)

// DefaultRoot is the workspace directory used when none is configured.
const DefaultRoot = "./workspace"

// defaultCommandTimeout bounds a single command run.
const defaultCommandTimeout = 30 * time.Second

// Local serves workspace operations from a directory on disk. Every
// target path is resolved against the root and rejected if it escapes.
type Local struct {
	root       string
	cmdTimeout time.Duration
	logger     *zap.Logger
}

// Option configures a Local workspace.
type Option func(*Local)

// WithCommandTimeout overrides the per-command deadline.
func WithCommandTimeout(d time.Duration) Option {
	return func(l *Local) {
		if d > 0 {
			l.cmdTimeout = d
		}
	}
}

// NewLocal creates a local workspace rooted at root, creating the
// directory if needed. logger may be nil.
func NewLocal(root string, logger *zap.Logger, opts ...Option) (*Local, error) {
	if root == "" {
		root = DefaultRoot
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("creating workspace root: %w", err)
	}

	l := &Local{root: abs, cmdTimeout: defaultCommandTimeout, logger: logger}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Root returns the absolute workspace root.
func (l *Local) Root() string {
	return l.root
}

// WriteFile writes content to path, creating parent directories.
func (l *Local) WriteFile(ctx context.Context, path, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	abs, err := l.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return mapOSError(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return mapOSError(err)
	}
	l.logger.Debug("wrote file",
		zap.String("path", path),
		zap.Int("bytes", len(content)),
	)
	return nil
}

// ReadFile returns the content of path.
func (l *Local) ReadFile(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	abs, err := l.resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", mapOSError(err)
	}
	return string(data), nil
}

// Exists reports whether path exists inside the workspace.
func (l *Local) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	abs, err := l.resolve(path)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(abs); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, mapOSError(err)
	}
	return true, nil
}

// ExistsProbe adapts Exists to the signature the risk classifier takes.
// Probe failures degrade to "does not exist", which classifies milder;
// the gate still sees every mutation.
func (l *Local) ExistsProbe() func(string) bool {
	return func(path string) bool {
		ok, err := l.Exists(context.Background(), path)
		return err == nil && ok
	}
}

// RunCommand executes cmdline through the shell with the workspace root
// as working directory. A non-zero exit is not an error; it is reported
// in the output so the handler can decide.
func (l *Local) RunCommand(ctx context.Context, cmdline string) (tools.CommandOutput, error) {
	if strings.TrimSpace(cmdline) == "" {
		return tools.CommandOutput{}, fmt.Errorf("%w: empty command", tools.ErrIO)
	}

	ctx, cancel := context.WithTimeout(ctx, l.cmdTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", cmdline)
	cmd.Dir = l.root

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := tools.CommandOutput{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	// A timed-out process is killed and surfaces as an ExitError, so the
	// deadline check must come first.
	var exitErr *exec.ExitError
	switch {
	case err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded):
		return out, fmt.Errorf("%w: command timed out after %s", tools.ErrIO, l.cmdTimeout)
	case err == nil:
	case errors.As(err, &exitErr):
		out.ExitCode = exitErr.ExitCode()
	default:
		return out, mapOSError(err)
	}

	l.logger.Debug("ran command",
		zap.String("cmdline", cmdline),
		zap.Int("exit_code", out.ExitCode),
	)
	return out, nil
}

// PreviewDiff renders a unified diff between the current file content
// and newContent. A missing file diffs against empty.
func (l *Local) PreviewDiff(ctx context.Context, path, newContent string) (string, error) {
	current, err := l.ReadFile(ctx, path)
	if err != nil && !errors.Is(err, tools.ErrNotFound) {
		return "", err
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(current),
		B:        difflib.SplitLines(newContent),
		FromFile: path,
		ToFile:   path,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("rendering diff: %w", err)
	}
	return text, nil
}

func (l *Local) resolve(path string) (string, error) {
	abs, err := sanitize.ResolveWithin(path, l.root)
	if err != nil {
		return "", fmt.Errorf("%w: %v", tools.ErrPermissionDenied, err)
	}
	return abs, nil
}

// mapOSError folds OS-level failures into the categorized workspace
// errors the executor keys retry policy on.
func mapOSError(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %v", tools.ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %v", tools.ErrPermissionDenied, err)
	case errors.Is(err, syscall.EAGAIN), errors.Is(err, syscall.EBUSY), errors.Is(err, syscall.ETXTBSY):
		return fmt.Errorf("%w: %v", tools.ErrBusy, err)
	default:
		return fmt.Errorf("%w: %v", tools.ErrIO, err)
	}
}

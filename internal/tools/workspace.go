// Package tools maps capability names to executable handlers. The
// capability table is closed and fixed at startup; there is no runtime
// capability injection.
package tools

import (
	"context"
	"errors"
)

// Workspace operation errors. Handlers wrap these so the executor can
// categorize failures for retry policy.
var (
	// ErrPermissionDenied is a permanent authorization failure.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is a permanent missing-target failure.
	ErrNotFound = errors.New("not found")

	// ErrIO is a permanent input/output failure.
	ErrIO = errors.New("io error")

	// ErrBusy signals lock/contention and is the only transient kind.
	ErrBusy = errors.New("resource busy")
)

// CommandOutput captures one command run.
type CommandOutput struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// WorkspaceProvider is the capability surface handlers call into for
// file and terminal primitives. All operations may fail with
// ErrPermissionDenied, ErrNotFound, ErrIO, or ErrBusy.
type WorkspaceProvider interface {
	// WriteFile writes content, creating parent directories as needed.
	WriteFile(ctx context.Context, path, content string) error

	// ReadFile returns the current content of a file.
	ReadFile(ctx context.Context, path string) (string, error)

	// Exists reports whether a path exists.
	Exists(ctx context.Context, path string) (bool, error)

	// RunCommand executes a command line and captures its output.
	RunCommand(ctx context.Context, cmdline string) (CommandOutput, error)
}

// DiffPreviewer is implemented by providers that can render a preview
// diff before a write. Preview support is optional.
type DiffPreviewer interface {
	PreviewDiff(ctx context.Context, path, newContent string) (string, error)
}

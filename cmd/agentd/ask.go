package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/agentd/internal/action"
	"github.com/fyrsmithlabs/agentd/internal/config"
	"github.com/fyrsmithlabs/agentd/internal/logging"
)

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Send one message through the pipeline interactively",
	Long: `Send a single message to the completion backend, execute any actions
it proposes, and print the composed summary. Approvals are asked on the
terminal, including edit-then-approve for dangerous actions.

Examples:
  # One-shot message
  agentd ask "create a hello.py that prints hi"

  # Read the message from stdin
  echo "show me the files here" | agentd ask -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Terminal use: keep log output readable next to the prompts.
	logger, err := logging.New("warn", "console")
	if err != nil {
		return err
	}
	defer logger.Sync()

	var message string
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read from stdin: %w", err)
		}
		message = strings.TrimSpace(string(data))
	} else {
		message = args[0]
	}
	if message == "" {
		return fmt.Errorf("no message provided")
	}

	// Stdin carries the message in pipe mode, so approvals must come
	// from the controlling terminal.
	promptIn := io.Reader(os.Stdin)
	if len(args) == 0 || args[0] == "-" {
		tty, err := os.Open("/dev/tty")
		if err != nil {
			return fmt.Errorf("interactive approval needs a terminal: %w", err)
		}
		defer tty.Close()
		promptIn = tty
	}

	p, err := buildPipeline(cfg, newTerminalPrompt(promptIn, os.Stderr), logger)
	if err != nil {
		return err
	}
	defer p.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	resp, err := p.orch.Handle(ctx, message)
	if err != nil {
		return err
	}

	fmt.Println(resp.Summary)

	for _, res := range resp.Results {
		if res.Status != action.StatusSuccess && res.Err != nil {
			fmt.Fprintf(os.Stderr, "%s %s: %s\n", res.Status, res.Request.Capability, res.Err.Message)
		}
	}
	return nil
}

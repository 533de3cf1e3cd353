package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fyrsmithlabs/agentd/internal/action"
	"github.com/fyrsmithlabs/agentd/internal/gate"
	"github.com/fyrsmithlabs/agentd/internal/risk"
)

// terminalPrompt asks for approval on the terminal. Supports approve,
// deny, and edit-then-approve for dangerous requests.
type terminalPrompt struct {
	in  *bufio.Reader
	out io.Writer
}

func newTerminalPrompt(in io.Reader, out io.Writer) *terminalPrompt {
	return &terminalPrompt{in: bufio.NewReader(in), out: out}
}

// Ask renders the request and reads a decision. The read runs in a
// goroutine so context cancellation is honored while waiting.
func (t *terminalPrompt) Ask(ctx context.Context, req action.Request, assessment risk.Assessment) (gate.Decision, error) {
	fmt.Fprintf(t.out, "\n[%s] %s wants to run:\n", strings.ToUpper(string(assessment.Tier)), req.Capability)
	fmt.Fprintf(t.out, "  target: %s\n", req.Target)
	if req.Payload != "" {
		fmt.Fprintf(t.out, "  payload: %s\n", preview(req.Payload))
	}
	if len(assessment.Reasons) > 0 {
		fmt.Fprintf(t.out, "  flagged: %s\n", strings.Join(assessment.Reasons, ", "))
	}
	if assessment.SuggestedAlternative != "" {
		fmt.Fprintf(t.out, "  safer alternative: %s\n", assessment.SuggestedAlternative)
	}
	fmt.Fprint(t.out, "Approve? [y/n/e(dit)] ")

	line, err := t.readLine(ctx)
	if err != nil {
		return gate.Decision{}, err
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return gate.Decision{Outcome: gate.OutcomeApproved, Reason: "approved at terminal"}, nil
	case "e", "edit":
		return t.askEdit(ctx, req)
	default:
		return gate.Decision{Outcome: gate.OutcomeDenied, Reason: "denied at terminal"}, nil
	}
}

func (t *terminalPrompt) askEdit(ctx context.Context, req action.Request) (gate.Decision, error) {
	fmt.Fprintf(t.out, "New target [%s]: ", req.Target)
	target, err := t.readLine(ctx)
	if err != nil {
		return gate.Decision{}, err
	}
	fmt.Fprint(t.out, "New payload [keep current]: ")
	payload, err := t.readLine(ctx)
	if err != nil {
		return gate.Decision{}, err
	}

	return gate.Decision{
		Outcome:       gate.OutcomeApprovedWithEdit,
		Reason:        "edited at terminal",
		EditedTarget:  strings.TrimSpace(target),
		EditedPayload: strings.TrimRight(payload, "\n"),
	}, nil
}

func (t *terminalPrompt) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := t.in.ReadString('\n')
		if err != nil && line == "" {
			ch <- result{"", err}
			return
		}
		ch <- result{line, nil}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		return r.line, r.err
	}
}

func preview(s string) string {
	s = strings.ReplaceAll(s, "\n", "\\n")
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}

package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"agent-chat/internal/chat"
	"agent-chat/internal/export"

	"github.com/charmbracelet/x/ansi"
)

// RunPlain is the non-TTY front end: every input line is a draft that gets
// submitted, and the reply is printed once it resolves.
func RunPlain(ctx context.Context, ctrl *chat.Controller, in io.Reader, out io.Writer, labels export.Labels) error {
	if strings.TrimSpace(labels.Assistant) == "" {
		labels.Assistant = export.DefaultLabels().Assistant
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		ctrl.UpdateDraft(scanner.Text())
		reply, ok := ctrl.Submit(ctx)
		if !ok {
			continue
		}
		if reply.Err != nil {
			if _, err := fmt.Fprintln(out, failedStatus); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			continue
		}
		if _, err := fmt.Fprintf(out, "%s: %s\n", labels.Assistant, ansi.Strip(reply.Content)); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

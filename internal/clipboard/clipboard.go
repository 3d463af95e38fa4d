package clipboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
)

var ErrUnavailable = errors.New("clipboard tool not found")

var (
	unsupported = func() bool { return clipboard.Unsupported }
	writeAll    = clipboard.WriteAll
)

// Copy places text on the system clipboard, giving up when ctx is done.
func Copy(ctx context.Context, text string) error {
	if unsupported() {
		return ErrUnavailable
	}

	done := make(chan error, 1)
	go func() { done <- writeAll(text) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("clipboard write failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("clipboard write: %w", ctx.Err())
	}
}

// Package indicator renders walkthrough progress for the operator running
// the scan in a terminal.
package indicator

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Console writes step-by-step walkthrough status lines to a terminal.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

func (c *Console) ShowNarrating(_ context.Context, stepID, text string) {
	c.printf("[%s] %s\n", stepID, text)
}

func (c *Console) ShowListening(_ context.Context) {
	c.printf("… listening (run `paintbid ask` again when done speaking)\n")
}

func (c *Console) ShowAnswer(_ context.Context, text string) {
	c.printf("→ %s\n", text)
}

func (c *Console) ShowComplete(_ context.Context) {
	c.printf("✓ walkthrough complete\n")
}

func (c *Console) ShowError(_ context.Context, message string) {
	c.printf("✗ %s\n", message)
}

func (c *Console) Hide(_ context.Context) {}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// promptConfirmer asks on the terminal. Anything but y/yes is a no,
// including end of input.
type promptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func newPromptConfirmer(in io.Reader, out io.Writer) *promptConfirmer {
	return &promptConfirmer{in: bufio.NewReader(in), out: out}
}

func (p *promptConfirmer) Confirm(ctx context.Context, prompt string) bool {
	if ctx.Err() != nil {
		return false
	}
	fmt.Fprintf(p.out, "%s [y/N] ", prompt)
	answer, err := p.in.ReadString('\n')
	if err != nil && answer == "" {
		fmt.Fprintln(p.out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

type printNotifier struct {
	mu    sync.Mutex
	out   io.Writer
	count int
}

func (n *printNotifier) Notify(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.count++
	fmt.Fprintln(n.out, errorStyle.Render(msg))
}

func (n *printNotifier) shown() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.count > 0
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/user/blogdesk-go/notify"
)

// console is the terminal the user sits at. It answers confirmation prompts,
// prints notifications and stands in for navigation to the login screen.
type console struct {
	mu     sync.Mutex
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer
}

func newConsole(in io.Reader, out, errOut io.Writer) *console {
	return &console{in: bufio.NewReader(in), out: out, errOut: errOut}
}

// Confirm asks a yes/no question on stdin. Anything but y or yes is a no.
func (c *console) Confirm(ctx context.Context, prompt string) (bool, error) {
	answer, err := c.ask(ctx, prompt+" [y/N]: ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// ToLogin tells the user how to sign in.
func (c *console) ToLogin() {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.errOut, "Run `blogdesk login` to sign in.")
}

// ask prints prompt and reads one trimmed line. End of input counts as an
// empty answer.
func (c *console) ask(ctx context.Context, prompt string) (string, error) {
	type result struct {
		line string
		err  error
	}
	c.mu.Lock()
	fmt.Fprint(c.errOut, prompt)
	c.mu.Unlock()

	ch := make(chan result, 1)
	go func() {
		line, err := c.in.ReadString('\n')
		if err == io.EOF {
			err = nil
		}
		ch <- result{strings.TrimSpace(line), err}
	}()
	select {
	case r := <-ch:
		return r.line, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *console) notification(n notify.Notification) {
	mark := "i"
	switch n.Level {
	case notify.LevelSuccess:
		mark = "✔"
	case notify.LevelError:
		mark = "✖"
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.errOut, "%s %s\n", mark, n.Message)
}

func (c *console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

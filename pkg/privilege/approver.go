package privilege

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// TerminalApprover asks the operator for elevation approval on the
// controlling terminal. When stdin is not a terminal, approval is refused
// rather than blocking on input that will never arrive.
type TerminalApprover struct {
	In  io.Reader
	Out io.Writer
}

// NewTerminalApprover creates an approver on stdin/stderr.
func NewTerminalApprover() *TerminalApprover {
	return &TerminalApprover{In: os.Stdin, Out: os.Stderr}
}

// Approve prints the operation description and reads a yes/no answer.
// The read is a bounded suspension: ctx cancellation abandons the prompt
// and counts as refusal.
func (a *TerminalApprover) Approve(ctx context.Context, operation string) (bool, error) {
	if f, ok := a.In.(*os.File); ok && !isatty.IsTerminal(f.Fd()) {
		return false, fmt.Errorf("stdin is not a terminal; cannot prompt for elevation")
	}

	fmt.Fprintf(a.Out, "\nPermission required for: %s\n", operation)
	fmt.Fprintf(a.Out, "This operation needs elevated read privileges. Grant sudo access? [y/N] ")

	type answer struct {
		text string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := bufio.NewReader(a.In).ReadString('\n')
		ch <- answer{text: line, err: err}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(a.Out)
		return false, ctx.Err()
	case ans := <-ch:
		if ans.err != nil && ans.text == "" {
			return false, ans.err
		}
		switch strings.ToLower(strings.TrimSpace(ans.text)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}

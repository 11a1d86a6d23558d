package tools

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"autoav/pkg/protocol"
)

// commandTimeout bounds one diagnostic command invocation.
const commandTimeout = 30 * time.Second

// runCommand executes one allow-listed read-only diagnostic command.
// The allow-list match is exact, and args are handed to exec as a
// discrete argv: nothing here ever passes through a shell, so argument
// content cannot inject further commands.
func (d *Dispatcher) runCommand(ctx context.Context, command string, args []string) (string, error) {
	if _, ok := d.allowed[command]; !ok {
		return "", &protocol.PermissionDeniedError{
			Operation: "run command " + command,
			Reason:    "command is not on the diagnostic allow-list",
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, command, args...)
	out, err := cmd.CombinedOutput()
	if runCtx.Err() == context.DeadlineExceeded {
		return "", &protocol.TimeoutError{Operation: "command " + command, Limit: commandTimeout.String()}
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &protocol.CommandExecutionError{Command: command, Stderr: strings.TrimSpace(string(out)), Err: err}
		}
		return "", &protocol.CommandExecutionError{Command: command, Err: err}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "$ %s", command)
	if len(args) > 0 {
		fmt.Fprintf(&b, " %s", strings.Join(args, " "))
	}
	b.WriteString("\n")
	b.Write(out)
	return b.String(), nil
}

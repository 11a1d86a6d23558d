package protocol

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure for the ledger and the final report.
type ErrorKind string

// Error kind constants.
const (
	KindPermissionDenied  ErrorKind = "permission_denied"
	KindUnknownTool       ErrorKind = "unknown_tool"
	KindInvalidArguments  ErrorKind = "invalid_arguments"
	KindResourceTooLarge  ErrorKind = "resource_too_large"
	KindCommandExecution  ErrorKind = "command_execution_error"
	KindTimeout           ErrorKind = "timeout"
	KindReasoningService  ErrorKind = "reasoning_service_error"
)

// Kinder is implemented by every typed error in the taxonomy.
type Kinder interface {
	Kind() ErrorKind
}

// KindOf returns the taxonomy kind of err, or the empty string if err is
// not a typed protocol error.
func KindOf(err error) ErrorKind {
	var k Kinder
	if errors.As(err, &k) {
		return k.Kind()
	}
	return ""
}

// PermissionDeniedError reports a refused or failed elevation, or a plain
// unreadable resource. Terminal for the specific operation only.
type PermissionDeniedError struct {
	Operation string
	Reason    string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("permission denied for %s: %s", e.Operation, e.Reason)
}

// Kind implements Kinder.
func (e *PermissionDeniedError) Kind() ErrorKind { return KindPermissionDenied }

// UnknownToolError reports a tool name outside the static registry.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// Kind implements Kinder.
func (e *UnknownToolError) Kind() ErrorKind { return KindUnknownTool }

// InvalidArgumentsError reports arguments that fail a tool's declared
// schema. The underlying operation is never invoked.
type InvalidArgumentsError struct {
	Tool   string
	Detail string
}

func (e *InvalidArgumentsError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, e.Detail)
}

// Kind implements Kinder.
func (e *InvalidArgumentsError) Kind() ErrorKind { return KindInvalidArguments }

// ResourceTooLargeError reports a read target exceeding the payload cap.
// Size is the measured size; content is never silently truncated.
type ResourceTooLargeError struct {
	Path string
	Size int64
	Cap  int64
}

func (e *ResourceTooLargeError) Error() string {
	return fmt.Sprintf("file %s is %d bytes, exceeds the %d byte limit", e.Path, e.Size, e.Cap)
}

// Kind implements Kinder.
func (e *ResourceTooLargeError) Kind() ErrorKind { return KindResourceTooLarge }

// CommandExecutionError reports a subprocess failure unrelated to
// credentials (non-zero exit, binary not found).
type CommandExecutionError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *CommandExecutionError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("command %s failed: %v: %s", e.Command, e.Err, e.Stderr)
	}
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandExecutionError) Unwrap() error { return e.Err }

// Kind implements Kinder.
func (e *CommandExecutionError) Kind() ErrorKind { return KindCommandExecution }

// TimeoutError reports a subprocess or prompt that exceeded its deadline
// and was terminated.
type TimeoutError struct {
	Operation string
	Limit     string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Operation, e.Limit)
}

// Kind implements Kinder.
func (e *TimeoutError) Kind() ErrorKind { return KindTimeout }

// ReasoningServiceError reports a transport or schema failure from the
// external reasoning service. It aborts the investigation; it is never
// converted into a tool turn.
type ReasoningServiceError struct {
	Reason string
	Err    error
}

func (e *ReasoningServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("reasoning service: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("reasoning service: %s", e.Reason)
}

func (e *ReasoningServiceError) Unwrap() error { return e.Err }

// Kind implements Kinder.
func (e *ReasoningServiceError) Kind() ErrorKind { return KindReasoningService }

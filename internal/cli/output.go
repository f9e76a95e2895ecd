package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Exit codes for the command.
const (
	ExitSuccess      = 0 // Successful conversion
	ExitFailure      = 1 // Run failure (unknown relation, schema mismatch, I/O)
	ExitCommandError = 2 // Command error (bad arguments, invalid config, missing inputs)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitSuccess for nil and ExitFailure if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Summary is the end-of-run report.
type Summary struct {
	RunID   string         `json:"run_id"`
	Output  string         `json:"output"`
	Files   int            `json:"files"`
	Events  int            `json:"events"`
	Written int            `json:"written"`
	Batches int            `json:"batches"`
	Tables  []string       `json:"tables"`
	Skipped map[string]int `json:"skipped"`
}

// OutputFormatter handles JSON vs text output of the run summary.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Summary writes s in the configured format.
func (f *OutputFormatter) Summary(s Summary) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(s)
	}

	skipped := 0
	for _, n := range s.Skipped {
		skipped += n
	}
	_, err := fmt.Fprintf(f.Writer,
		"Converted %d events from %d files into %s (%d written, %d skipped, %d batches)\n",
		s.Events, s.Files, s.Output, s.Written, skipped, s.Batches)
	if err != nil || len(s.Tables) == 0 {
		return err
	}
	_, err = fmt.Fprintf(f.Writer, "Tables: %s\n", strings.Join(s.Tables, ", "))
	return err
}

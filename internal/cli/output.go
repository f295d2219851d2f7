package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/skim/internal/ir"
)

// Process exit codes.
//
// Analysis exits ExitFailure only when the run hit a fatal runtime
// condition (rule or load exception, halted run, incompatible rule, no
// rules). Error-level results alone do not fail a run; use
// --rich-exit-code to act on them.
const (
	ExitSuccess      = 0 // Run completed without fatal conditions
	ExitFailure      = 1 // Fatal runtime condition, failed scenario, diverged replay
	ExitCommandError = 2 // Bad flags, unreadable config or database, missing paths

	// ExitRichHighBits is the status of a --rich-exit-code run whose
	// condition bits all lie above the low byte a process status keeps.
	ExitRichHighBits = 255
)

// Error codes carried by JSON error responses.
const (
	ErrCodeConfigUnreadable = "E_CONFIG_UNREADABLE"
	ErrCodeConfigInvalid    = "E_CONFIG_INVALID"
	ErrCodeRunNotFound      = "E_RUN_NOT_FOUND"
	ErrCodeRunFailed        = "E_RUN_FAILED"
	ErrCodeTestFailed       = "E_TEST_FAILED"
	ErrCodeReplayDiverged   = "E_REPLAY_DIVERGED"
)

// ExitError is a command failure with the process exit code to use.
// Conditions is set when the failure comes from a finished run.
type ExitError struct {
	Code       int
	Message    string
	Conditions ir.RuntimeConditions
	Err        error
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

// NewExitError creates an ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps err with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// runExitError reports a finished run whose invocation exit code is not
// zero. A rich exit code is the whole condition bit set; the message
// carries it in full because a process status keeps only the low byte.
func runExitError(rep *ir.Report) *ExitError {
	code := rep.Invocation.ExitCode
	msg := fmt.Sprintf("analysis finished with conditions %s", rep.Conditions)
	if code != ExitFailure {
		msg = fmt.Sprintf("%s (exit code %d)", msg, code)
	}
	return &ExitError{Code: processStatus(code), Message: msg, Conditions: rep.Conditions}
}

// processStatus fits an exit code into 8 bits without turning a nonzero
// code into success.
func processStatus(code int) int {
	if code >= 0 && code <= 0xff {
		return code
	}
	if low := code & 0xff; low != 0 {
		return low
	}
	return ExitRichHighBits
}

// GetExitCode extracts the exit code from an error. Errors that are not
// an ExitError map to ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// RunStatus identifies a run and how it ended.
type RunStatus struct {
	RunID        string   `json:"run_id"`
	AutomationID string   `json:"automation_id,omitempty"`
	ExitCode     int      `json:"exit_code"`
	Conditions   []string `json:"conditions,omitempty"`
	Results      int      `json:"results"`
	Notify       int      `json:"notifications"`
}

func runStatus(rep *ir.Report) *RunStatus {
	return &RunStatus{
		RunID:        rep.RunID,
		AutomationID: rep.AutomationID,
		ExitCode:     rep.Invocation.ExitCode,
		Conditions:   rep.Conditions.Names(),
		Results:      len(rep.Results),
		Notify:       len(rep.Notifications),
	}
}

// CLIResponse is the JSON envelope of every command that does not print a
// report document.
type CLIResponse struct {
	Status string     `json:"status"` // "ok" or "error"
	Run    *RunStatus `json:"run,omitempty"`
	Data   any        `json:"data,omitempty"`
	Error  *CLIError  `json:"error,omitempty"`
}

// CLIError is the error part of a CLIResponse.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// OutputFormatter writes command output as text or as a CLIResponse.
// Diagnostics go to ErrWriter so they never mix with JSON on Writer.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	return json.NewEncoder(f.Writer).Encode(resp)
}

// Success prints data: the envelope in JSON mode, its default text form
// otherwise.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error prints a coded failure.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// RunFinished prints the status of a finished run. A run with a nonzero
// exit code is reported as an E_RUN_FAILED error.
func (f *OutputFormatter) RunFinished(rep *ir.Report) error {
	st := runStatus(rep)
	if f.Format != "json" {
		fmt.Fprintf(f.Writer, "run %s: exit code %d, %d results, %d notifications\n",
			st.RunID, st.ExitCode, st.Results, st.Notify)
		return nil
	}
	resp := CLIResponse{Status: "ok", Run: st}
	if st.ExitCode != ExitSuccess {
		resp.Status = "error"
		resp.Error = &CLIError{Code: ErrCodeRunFailed, Message: fmt.Sprintf("conditions %s", rep.Conditions)}
	}
	return f.encode(resp)
}

// VerboseLog prints a diagnostic line when verbose output is on.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

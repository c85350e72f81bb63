package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/tgawarplanet/roster/internal/model"
	"github.com/tgawarplanet/roster/internal/registry"
	"github.com/tgawarplanet/roster/internal/snapshot"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Lookup failure (player, faction or user not found)
	ExitCommandError = 2 // Command error (bad arguments, store failure, etc.)
)

// Error codes reported in CLIError.Code.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeUsage       = "E002" // Bad arguments or flags
	ErrCodeNotFound    = "E005" // Player, faction, user or tenant not found
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeStore       = "E201" // Store statement or connection failed
	ErrCodeCacheDrift  = "E202" // Faction cache disagrees with the store
	ErrCodeUnavailable = "E203" // Tenant failed to open earlier
	ErrCodeSnapshot    = "E301" // Snapshot unreadable or invalid
	ErrCodeBackup      = "E302" // Backup sink failed
)

// ExitError carries the process exit code and the reported error code of a
// failed command.
type ExitError struct {
	Code    int    // Exit code (ExitFailure or ExitCommandError)
	ErrCode string // Reported error code; empty means ErrCodeUsage
	Message string
	Err     error // Underlying error (optional)
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

// NewExitError creates a usage ExitError.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// codedError is a command error reported under errCode.
func codedError(errCode, message string, err error) *ExitError {
	return &ExitError{Code: ExitCommandError, ErrCode: errCode, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// classify maps a domain error onto its reported code, exit code and
// details. Lookups that found nothing exit with ExitFailure; everything else
// is a command error.
func classify(err error) (errCode string, exit int, details any) {
	var (
		exitErr *ExitError
		verErr  *snapshot.VersionError
		valErr  *snapshot.ValidationError
	)
	switch {
	case errors.As(err, &exitErr):
		if exitErr.ErrCode == "" {
			return ErrCodeUsage, exitErr.Code, nil
		}
		return exitErr.ErrCode, exitErr.Code, nil
	case model.IsNotFound(err):
		return ErrCodeNotFound, ExitFailure, nil
	case errors.Is(err, registry.ErrUnavailable):
		return ErrCodeUnavailable, ExitCommandError, nil
	case errors.Is(err, model.ErrCacheDrift):
		return ErrCodeCacheDrift, ExitCommandError, nil
	case model.IsStoreFailure(err):
		return ErrCodeStore, ExitCommandError, nil
	case errors.As(err, &verErr):
		return ErrCodeSnapshot, ExitCommandError, nil
	case errors.As(err, &valErr):
		return ErrCodeSnapshot, ExitCommandError, valErr.Problems
	default:
		return ErrCodeGeneric, ExitCommandError, nil
	}
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Verbose output goes here so JSON on Writer stays clean (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E005", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // e.g. schema problems of a snapshot
}

// Success outputs a result in the configured format. In text mode data is
// printed with its String method.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports err and returns the ExitError the command should exit with.
func (f *OutputFormatter) Fail(err error) error {
	code, exit, details := classify(err)
	_ = f.Error(code, err.Error(), details)

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	if exit == ExitFailure {
		return WrapExitError(exit, "not found", err)
	}
	return WrapExitError(exit, "command failed", err)
}

// VerboseLog outputs a message only if verbose mode is enabled.
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

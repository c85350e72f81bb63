package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgawarplanet/roster/internal/model"
	"github.com/tgawarplanet/roster/internal/registry"
	"github.com/tgawarplanet/roster/internal/snapshot"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("E005", "faction \"Red\" not found", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.NotNil(t, resp.Error)
	assert.Equal(t, "E005", resp.Error.Code)
	assert.Equal(t, "faction \"Red\" not found", resp.Error.Message)
}

func TestOutputFormatter_JSONErrorWithDetails(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	details := []string{"players.0.name: invalid value \"\""}
	err := formatter.Error("E301", "invalid snapshot", details)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.NotNil(t, resp.Error)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Success(message{Message: "Removed player #1 Bob."})
	require.NoError(t, err)
	assert.Equal(t, "Removed player #1 Bob.\n", buf.String())
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: false,
	}

	err := formatter.Error("E201", "insert player: disk I/O error", nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E201]")
	assert.Contains(t, buf.String(), "disk I/O error")
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	details := map[string]string{"tenant": "100"}
	err := formatter.Error("E001", "command failed", details)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E001]")
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:  "text",
				Writer:  buf,
				Verbose: tt.verbose,
			}

			formatter.VerboseLog("Importing %s", "100.json")

			if tt.wantLog {
				assert.Contains(t, buf.String(), "Importing 100.json")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		wantExit int
	}{
		{"not found", fmt.Errorf("show: %w", model.NotFound("player", 9)), ErrCodeNotFound, ExitFailure},
		{"store", model.StoreFailure("insert player", errors.New("disk I/O error")), ErrCodeStore, ExitCommandError},
		{"drift", fmt.Errorf("player 1: %w", model.ErrCacheDrift), ErrCodeCacheDrift, ExitCommandError},
		{"unavailable", fmt.Errorf("tenant 5: %w", registry.ErrUnavailable), ErrCodeUnavailable, ExitCommandError},
		{"version", &snapshot.VersionError{Version: 7}, ErrCodeSnapshot, ExitCommandError},
		{"usage", NewExitError(ExitCommandError, "--tenant is required"), ErrCodeUsage, ExitCommandError},
		{"coded", codedError(ErrCodeBackup, "backup failed", errors.New("denied")), ErrCodeBackup, ExitCommandError},
		{"generic", errors.New("boom"), ErrCodeGeneric, ExitCommandError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, exit, _ := classify(tt.err)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantExit, exit)
		})
	}
}

func TestClassify_ValidationDetails(t *testing.T) {
	err := &snapshot.ValidationError{Problems: []string{"tenant.id: invalid value 0"}}
	code, _, details := classify(fmt.Errorf("read snapshot: %w", err))
	assert.Equal(t, ErrCodeSnapshot, code)
	assert.Equal(t, []string{"tenant.id: invalid value 0"}, details)
}

func TestOutputFormatter_Fail(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	err := formatter.Fail(model.NotFound("faction", "Green"))
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "Error [E005]: faction \"Green\" not found\n", buf.String())

	buf.Reset()
	coded := codedError(ErrCodeWriteFailed, "failed to write export", errors.New("read-only file system"))
	err = formatter.Fail(coded)
	assert.Same(t, coded, err)
	assert.Equal(t, "Error [E007]: failed to write export: read-only file system\n", buf.String())
}

func TestExitCodes(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad")))

	wrapped := fmt.Errorf("outer: %w", WrapExitError(ExitFailure, "not found", errors.New("inner")))
	assert.Equal(t, ExitFailure, GetExitCode(wrapped))
	assert.Equal(t, "outer: not found: inner", wrapped.Error())
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types and exit codes for litechat commands.
//
// Handlers always return errors; main displays them once and picks the
// exit code from the error chain.

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/DimitriGilbert/LiteChat-sub000/internal/config"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/storage"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/store"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitConfigError  = 3
	ExitStorageError = 4
	ExitNotFound     = 7
	ExitInterrupted  = 130
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError is a failed command action.
type CommandError struct {
	Command string
	Action  string
	Reason  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ValidationError is bad user input.
type ValidationError struct {
	Field   string
	Value   string
	Reason  string
	Example string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// NotFoundError is a missing conversation or interaction.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// NewCommandError creates a CommandError.
func NewCommandError(command, action, reason string, err error) error {
	return &CommandError{Command: command, Action: action, Reason: reason, Err: err}
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// ErrMissingArgument reports a missing positional argument with its usage.
func ErrMissingArgument(argName, usage string) error {
	return &ValidationError{Field: argName, Reason: "required argument missing", Example: usage}
}

// ErrNotFound creates a NotFoundError.
func ErrNotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError writes err to w, as a JSON error response in JSON mode.
func DisplayError(w io.Writer, command string, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		resp := NewJSONErrorResponse(command, err)
		resp.Details = errorDetails(err)
		_ = resp.Write(w)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
}

func errorDetails(err error) map[string]any {
	var (
		cmdErr *CommandError
		valErr *ValidationError
		nfErr  *NotFoundError
	)
	switch {
	case errors.As(err, &valErr):
		d := map[string]any{"error_type": "validation_error", "field": valErr.Field, "reason": valErr.Reason}
		if valErr.Example != "" {
			d["example"] = valErr.Example
		}
		return d
	case errors.As(err, &nfErr):
		return map[string]any{"error_type": "not_found_error", "resource": nfErr.Resource, "id": nfErr.ID}
	case errors.As(err, &cmdErr):
		return map[string]any{"error_type": "command_error", "command": cmdErr.Command, "action": cmdErr.Action}
	default:
		return map[string]any{"error_type": "generic_error"}
	}
}

// GetExitCode maps an error chain to an exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var (
		valErr  *ValidationError
		nfErr   *NotFoundError
		cfgErrs config.ValidateErrors
		jsonErr *json.SyntaxError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.As(err, &valErr), errors.As(err, &jsonErr):
		return ExitUsageError
	case errors.As(err, &nfErr), errors.Is(err, store.ErrNotFound):
		return ExitNotFound
	case errors.As(err, &cfgErrs):
		return ExitConfigError
	case errors.Is(err, storage.ErrStorage):
		return ExitStorageError
	default:
		return ExitGeneralError
	}
}

// WrapError adds context to err, nil stays nil.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

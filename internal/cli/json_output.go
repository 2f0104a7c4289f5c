// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - Machine-readable output shared by every command.

package cli

import (
	"encoding/json"
	"io"
	"time"

	"github.com/DimitriGilbert/LiteChat-sub000/internal/interaction"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/telemetry"
)

// JSONResponse is the envelope every command prints in --json mode.
type JSONResponse struct {
	Success   bool           `json:"success"`
	Data      any            `json:"data"`
	Error     *string        `json:"error"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp string         `json:"timestamp"`
	Command   string         `json:"command,omitempty"`
}

// NewJSONResponse creates a successful response.
func NewJSONResponse(command string, data any) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a failed response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	msg := err.Error()
	return &JSONResponse{
		Error:     &msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Write encodes r to w, indented.
func (r *JSONResponse) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Marshal returns r indented.
func (r *JSONResponse) Marshal() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// =============================================================================
// COMMAND DATA
// =============================================================================

// ShowData is the result of "show".
type ShowData struct {
	ConversationID string                     `json:"conversation_id"`
	Interactions   []*interaction.Interaction `json:"interactions"`
	Usage          telemetry.Usage            `json:"usage"`
}

// ReplayData is the result of "replay".
type ReplayData struct {
	Interaction *interaction.Interaction `json:"interaction"`
	Chunks      int                      `json:"chunks"`
}

// RateData is the result of "rate".
type RateData struct {
	InteractionID string `json:"interaction_id"`
	Index         int    `json:"index"`
	Rating        *int   `json:"rating"`
}

// VersionData is the result of "version".
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version,omitempty"`
}

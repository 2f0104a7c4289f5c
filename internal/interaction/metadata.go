// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package interaction

import (
	"encoding/json"
	"maps"
)

// TokenUsage reports provider token accounting for one exchange.
type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ToolResult is the outcome of a ToolCall.
type ToolResult struct {
	CallID  string `json:"callId"`
	Name    string `json:"name"`
	Output  string `json:"output"`
	IsError bool   `json:"isError,omitempty"`
}

// Metadata holds the optional facts recorded about an interaction.
// Keys without a typed field are kept in Extra and round-trip through JSON
// at the top level of the object.
type Metadata struct {
	ModelID             string       `json:"modelId,omitempty"`
	ProviderID          string       `json:"providerId,omitempty"`
	Usage               *TokenUsage  `json:"usage,omitempty"`
	ToolCalls           []ToolCall   `json:"toolCalls,omitempty"`
	ToolResults         []ToolResult `json:"toolResults,omitempty"`
	Reasoning           string       `json:"reasoning,omitempty"`
	ReasoningDurationMs int64        `json:"reasoningDurationMs,omitempty"`
	TimeToFirstTokenMs  int64        `json:"timeToFirstTokenMs,omitempty"`
	Error               string       `json:"error,omitempty"`

	Extra map[string]any `json:"-"`
}

// knownMetadataKeys lists the JSON keys owned by typed fields.
var knownMetadataKeys = map[string]struct{}{
	"modelId": {}, "providerId": {}, "usage": {}, "toolCalls": {},
	"toolResults": {}, "reasoning": {}, "reasoningDurationMs": {},
	"timeToFirstTokenMs": {}, "error": {},
}

// Merge returns m with every set field of u applied on top.
func (m Metadata) Merge(u Metadata) Metadata {
	out := m.Clone()
	if u.ModelID != "" {
		out.ModelID = u.ModelID
	}
	if u.ProviderID != "" {
		out.ProviderID = u.ProviderID
	}
	if u.Usage != nil {
		usage := *u.Usage
		out.Usage = &usage
	}
	if u.ToolCalls != nil {
		out.ToolCalls = cloneToolCalls(u.ToolCalls)
	}
	if u.ToolResults != nil {
		out.ToolResults = append([]ToolResult(nil), u.ToolResults...)
	}
	if u.Reasoning != "" {
		out.Reasoning = u.Reasoning
	}
	if u.ReasoningDurationMs != 0 {
		out.ReasoningDurationMs = u.ReasoningDurationMs
	}
	if u.TimeToFirstTokenMs != 0 {
		out.TimeToFirstTokenMs = u.TimeToFirstTokenMs
	}
	if u.Error != "" {
		out.Error = u.Error
	}
	if len(u.Extra) > 0 {
		if out.Extra == nil {
			out.Extra = make(map[string]any, len(u.Extra))
		}
		for k, v := range u.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// Clone returns a copy sharing no slices or maps with m.
func (m Metadata) Clone() Metadata {
	out := m
	if m.Usage != nil {
		usage := *m.Usage
		out.Usage = &usage
	}
	out.ToolCalls = cloneToolCalls(m.ToolCalls)
	if m.ToolResults != nil {
		out.ToolResults = append([]ToolResult(nil), m.ToolResults...)
	}
	out.Extra = maps.Clone(m.Extra)
	return out
}

// IsZero reports whether no field is set.
func (m Metadata) IsZero() bool {
	return m.ModelID == "" && m.ProviderID == "" && m.Usage == nil &&
		m.ToolCalls == nil && m.ToolResults == nil && m.Reasoning == "" &&
		m.ReasoningDurationMs == 0 && m.TimeToFirstTokenMs == 0 &&
		m.Error == "" && len(m.Extra) == 0
}

func cloneToolCalls(calls []ToolCall) []ToolCall {
	if calls == nil {
		return nil
	}
	out := make([]ToolCall, len(calls))
	for i, c := range calls {
		out[i] = c
		if c.Arguments != nil {
			out[i].Arguments = append(json.RawMessage(nil), c.Arguments...)
		}
	}
	return out
}

// =============================================================================
// JSON
// =============================================================================

// metadataFields has the same layout as Metadata without its methods.
type metadataFields Metadata

// MarshalJSON writes typed fields and Extra keys into one flat object.
// Typed fields win over an Extra key of the same name.
func (m Metadata) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(metadataFields(m))
	if err != nil || len(m.Extra) == 0 {
		return data, err
	}

	flat := make(map[string]any, len(m.Extra)+4)
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, err
	}
	for k, v := range m.Extra {
		if _, known := knownMetadataKeys[k]; known {
			continue
		}
		flat[k] = v
	}
	return json.Marshal(flat)
}

// UnmarshalJSON reads typed fields and keeps every other key in Extra.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var fields metadataFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k := range knownMetadataKeys {
		delete(raw, k)
	}
	if len(raw) > 0 {
		fields.Extra = raw
	}

	*m = Metadata(fields)
	return nil
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package interaction

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// STATUS TESTS
// =============================================================================

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusStreaming, StatusCompleted, true},
		{StatusStreaming, StatusError, true},
		{StatusStreaming, StatusStreaming, true},
		{StatusCompleted, StatusStreaming, false},
		{StatusCompleted, StatusError, false},
		{StatusError, StatusCompleted, false},
		{StatusError, StatusError, true},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

// =============================================================================
// MERGE TESTS
// =============================================================================

func TestMetadataMerge_FieldByField(t *testing.T) {
	base := Metadata{
		ModelID:   "llama3",
		ToolCalls: []ToolCall{{ID: "a", Name: "search"}},
		Extra:     map[string]any{"keep": 1, "swap": "old"},
	}

	merged := base.Merge(Metadata{
		Usage:     &TokenUsage{CompletionTokens: 12},
		ToolCalls: []ToolCall{{ID: "b", Name: "read"}},
		Extra:     map[string]any{"swap": "new"},
	})

	assert.Equal(t, "llama3", merged.ModelID, "zero field must not clear")
	require.NotNil(t, merged.Usage)
	assert.Equal(t, 12, merged.Usage.CompletionTokens)
	require.Len(t, merged.ToolCalls, 1, "arrays replace wholesale")
	assert.Equal(t, "b", merged.ToolCalls[0].ID)
	assert.Equal(t, 1, merged.Extra["keep"])
	assert.Equal(t, "new", merged.Extra["swap"])

	// base is untouched
	assert.Equal(t, "old", base.Extra["swap"])
	assert.Equal(t, "a", base.ToolCalls[0].ID)
}

func TestApply_ResponseAndRatingReplacedVerbatim(t *testing.T) {
	it := New("c1", 0, TypeMessage, &Prompt{Content: "hi"})
	it.Response = Ptr("old")
	it.Rating = Ptr(3)

	ok := it.Apply(Update{Response: Ptr(""), Rating: Ptr(-2)})
	assert.True(t, ok)
	require.NotNil(t, it.Response)
	assert.Equal(t, "", *it.Response)
	assert.Equal(t, -2, *it.Rating)

	it.Apply(Update{ClearRating: true})
	assert.Nil(t, it.Rating)
}

func TestApply_TerminalStatusIsFinal(t *testing.T) {
	it := New("c1", 0, TypeMessage, nil)
	require.True(t, it.Apply(Update{Status: Ptr(StatusCompleted), Response: Ptr("done")}))

	ok := it.Apply(Update{Status: Ptr(StatusStreaming), Metadata: &Metadata{ModelID: "m"}})
	assert.False(t, ok)
	assert.Equal(t, StatusCompleted, it.Status)
	assert.Equal(t, "m", it.Metadata.ModelID, "other fields still apply")
}

func TestMerge_KeepsIdentity(t *testing.T) {
	existing := New("c1", 4, TypeMessage, &Prompt{Content: "hello"})
	incoming := &Interaction{
		ID:             existing.ID,
		ConversationID: "c1",
		Index:          99,
		Status:         StatusCompleted,
		Response:       Ptr("world"),
		Metadata:       Metadata{ProviderID: "ollama"},
	}

	existing.Merge(incoming)

	assert.Equal(t, 4, existing.Index)
	assert.Equal(t, "hello", existing.Prompt.Content)
	assert.Equal(t, StatusCompleted, existing.Status)
	assert.Equal(t, "world", existing.ResponseText())
	assert.Equal(t, "ollama", existing.Metadata.ProviderID)
}

func TestClone_IsDeep(t *testing.T) {
	now := time.Now()
	it := New("c1", 0, TypeMessage, &Prompt{Content: "x", Attachments: []string{"a.txt"}})
	it.Response = Ptr("r")
	it.EndedAt = &now
	it.Metadata.Extra = map[string]any{"k": "v"}

	cp := it.Clone()
	*cp.Response = "changed"
	cp.Prompt.Attachments[0] = "b.txt"
	cp.Metadata.Extra["k"] = "changed"

	assert.Equal(t, "r", *it.Response)
	assert.Equal(t, "a.txt", it.Prompt.Attachments[0])
	assert.Equal(t, "v", it.Metadata.Extra["k"])
}

func TestSortByIndex(t *testing.T) {
	items := []*Interaction{
		{ID: "c", Index: 2},
		{ID: "a", Index: 0},
		{ID: "b", Index: 1},
	}
	SortByIndex(items)
	for i, want := range []string{"a", "b", "c"} {
		if items[i].ID != want {
			t.Errorf("items[%d].ID = %q, want %q", i, items[i].ID, want)
		}
	}
}

// =============================================================================
// JSON TESTS
// =============================================================================

func TestMetadataJSON_ExtraKeysStayFlat(t *testing.T) {
	md := Metadata{ModelID: "m", Extra: map[string]any{"temperature": 0.7}}

	data, err := json.Marshal(md)
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(data, &flat))
	assert.Equal(t, "m", flat["modelId"])
	assert.Equal(t, 0.7, flat["temperature"])

	var back Metadata
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "m", back.ModelID)
	assert.Equal(t, 0.7, back.Extra["temperature"])
	_, leaked := back.Extra["modelId"]
	assert.False(t, leaked)
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestValidate(t *testing.T) {
	it := New("c1", 0, TypeMessage, nil)
	require.NoError(t, it.Validate())

	bad := it.Clone()
	bad.ConversationID = ""
	assert.Error(t, bad.Validate())

	bad = it.Clone()
	bad.Status = "PAUSED"
	assert.Error(t, bad.Validate())

	bad = it.Clone()
	bad.Rating = Ptr(9)
	assert.Error(t, bad.Validate())
}

func TestValidateRating(t *testing.T) {
	assert.NoError(t, ValidateRating(nil))
	assert.NoError(t, ValidateRating(Ptr(5)))
	assert.NoError(t, ValidateRating(Ptr(-5)))
	assert.Error(t, ValidateRating(Ptr(6)))
	assert.Error(t, ValidateRating(Ptr(-6)))
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package interaction

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Rating bounds.
const (
	MinRating = -5
	MaxRating = 5
)

// Validate checks identity, enumerations and the rating range.
func (it *Interaction) Validate() error {
	return validation.ValidateStruct(it,
		validation.Field(&it.ID, validation.Required),
		validation.Field(&it.ConversationID, validation.Required),
		validation.Field(&it.Index, validation.Min(0)),
		validation.Field(&it.Type, validation.Required,
			validation.In(TypeMessage, TypeTitleGeneration, TypeCompact, TypeRulesSelection)),
		validation.Field(&it.Status, validation.Required,
			validation.In(StatusStreaming, StatusCompleted, StatusError)),
		validation.Field(&it.Rating, validation.Min(MinRating), validation.Max(MaxRating)),
	)
}

// ValidateRating checks a rating value before it is applied.
func ValidateRating(rating *int) error {
	return validation.Validate(rating, validation.Min(MinRating), validation.Max(MaxRating))
}

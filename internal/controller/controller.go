// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/DimitriGilbert/LiteChat-sub000/internal/events"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/store"
)

// =============================================================================
// REQUEST EVENTS
// =============================================================================

// Request events a UI can publish instead of calling the controller.
const (
	RequestLoadEvent            events.Name = "interaction.request.load"
	RequestRateEvent            events.Name = "interaction.request.rate"
	RequestSetConversationEvent events.Name = "interaction.request.set_active_conversation"
	RequestClearEvent           events.Name = "interaction.request.clear"
	RequestSetErrorEvent        events.Name = "interaction.request.set_error"
	RequestSetStatusEvent       events.Name = "interaction.request.set_status"
	RequestStopEvent            events.Name = "interaction.request.stop"
)

// ConversationRequest names a conversation.
type ConversationRequest struct {
	ConversationID string
}

// RateRequest rates an interaction; a nil Rating clears it.
type RateRequest struct {
	InteractionID string
	Rating        *int
}

// ErrorRequest records (or with "" clears) an error.
type ErrorRequest struct {
	Error string
}

// StatusRequest forces a status.
type StatusRequest struct {
	Status store.Status
}

// InteractionRequest names an interaction.
type InteractionRequest struct {
	InteractionID string
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Store is the part of *store.Store the controller drives.
type Store interface {
	LoadInteractions(ctx context.Context, conversationID string) error
	RateInteraction(ctx context.Context, id string, rating *int) error
	SetCurrentConversationID(ctx context.Context, id string) error
	Clear()
	SetError(msg string)
	SetStatus(st store.Status) error
	StopInteraction(ctx context.Context, id string) error
}

// Controller is the entry point for user requests. Each request passes
// straight through to the store.
type Controller struct {
	store Store
	log   zerolog.Logger
}

// New creates a controller for st.
func New(st Store, log zerolog.Logger) *Controller {
	return &Controller{store: st, log: log}
}

// RequestLoad reloads a conversation's interactions.
func (c *Controller) RequestLoad(ctx context.Context, conversationID string) error {
	return c.store.LoadInteractions(ctx, conversationID)
}

// RequestRate rates an interaction.
func (c *Controller) RequestRate(ctx context.Context, id string, rating *int) error {
	return c.store.RateInteraction(ctx, id, rating)
}

// RequestSetActiveConversation switches the active conversation.
func (c *Controller) RequestSetActiveConversation(ctx context.Context, id string) error {
	return c.store.SetCurrentConversationID(ctx, id)
}

// RequestClear drops the held interactions.
func (c *Controller) RequestClear() {
	c.store.Clear()
}

// RequestSetError records an error.
func (c *Controller) RequestSetError(msg string) {
	c.store.SetError(msg)
}

// RequestSetStatus forces the status.
func (c *Controller) RequestSetStatus(st store.Status) error {
	return c.store.SetStatus(st)
}

// RequestStop cancels a streaming interaction.
func (c *Controller) RequestStop(ctx context.Context, id string) error {
	return c.store.StopInteraction(ctx, id)
}

// Bind subscribes the controller to the request events on bus. Requests run
// on the publishing goroutine with ctx. Failures are logged; the store has
// already recorded them in its error state. The returned func unsubscribes.
func (c *Controller) Bind(ctx context.Context, bus *events.Bus) func() {
	unsubs := []func(){
		events.SubscribeTo(bus, RequestLoadEvent, func(r ConversationRequest) {
			c.report("load", c.RequestLoad(ctx, r.ConversationID))
		}),
		events.SubscribeTo(bus, RequestRateEvent, func(r RateRequest) {
			c.report("rate", c.RequestRate(ctx, r.InteractionID, r.Rating))
		}),
		events.SubscribeTo(bus, RequestSetConversationEvent, func(r ConversationRequest) {
			c.report("set_active_conversation", c.RequestSetActiveConversation(ctx, r.ConversationID))
		}),
		bus.Subscribe(RequestClearEvent, func(events.Event) {
			c.RequestClear()
		}),
		events.SubscribeTo(bus, RequestSetErrorEvent, func(r ErrorRequest) {
			c.RequestSetError(r.Error)
		}),
		events.SubscribeTo(bus, RequestSetStatusEvent, func(r StatusRequest) {
			c.report("set_status", c.RequestSetStatus(r.Status))
		}),
		events.SubscribeTo(bus, RequestStopEvent, func(r InteractionRequest) {
			c.report("stop", c.RequestStop(ctx, r.InteractionID))
		}),
	}
	return func() {
		for _, fn := range unsubs {
			fn()
		}
	}
}

func (c *Controller) report(op string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, store.ErrLoadSuperseded):
		c.log.Debug().Str("op", op).Msg("request superseded")
	default:
		c.log.Warn().Err(err).Str("op", op).Msg("request failed")
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package controller exposes the user-facing requests on the interaction
// store, either as method calls or as request events on the bus.
//
// # Usage
//
//	ctl := controller.New(st, log)
//	unbind := ctl.Bind(ctx, bus)
//	defer unbind()
//
//	bus.Publish(controller.RequestRateEvent, controller.RateRequest{InteractionID: id, Rating: &up})
package controller

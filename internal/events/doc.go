// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package events provides the in-process publish/subscribe bus.
//
// Handlers run synchronously on the publishing goroutine, in subscription
// order. A panicking handler is recovered and logged so one observer can never
// break the publisher or the observers after it.
//
// # Key Types
//
//   - Bus: Named-event pub/sub with unsubscribe handles
//   - Event: Name, payload and timestamp delivered to handlers
//   - Name: Event identifier such as "interaction.added"
//
// # Usage
//
//	bus := events.NewBus(events.WithLogger(log))
//	unsubscribe := events.SubscribeTo(bus, "interaction.added", func(p store.AddedPayload) {
//	    fmt.Println(p.Interaction.ID)
//	})
//	defer unsubscribe()
//
// A process-wide bus is available through Default; tests call
// ResetDefaultForTesting to start from a clean instance.
package events

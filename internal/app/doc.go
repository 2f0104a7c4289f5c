// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app wires the engine together: configuration, logging, tracing,
// metrics, the event bus, the persistence gateway, the interaction store
// and its controller. Optional components (presenter, metrics server,
// config watcher) attach to an App and are released by Close.
//
// # Usage
//
//	a, err := app.New(app.Options{Config: cfg})
//	if err != nil {
//		return err
//	}
//	defer a.Close(context.Background())
//
//	p := a.NewPresenter(func(s render.Snapshot) { fmt.Print(s.Content) })
//	_, err = a.Producer().Run(ctx, store.StartParams{}, replay.Slice(chunks))
package app

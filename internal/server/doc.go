// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes Prometheus metrics and a health probe over HTTP.
//
// # Endpoints
//
//   - GET /metrics   - Prometheus exposition of internal/metrics collectors
//   - GET /healthz   - Liveness, degraded while the store holds an error
//   - GET /v1/state  - Active conversation, status and streaming set
//
// # Key Types
//
//   - Server: chi router plus http.Server lifecycle
//   - StateSource: anything that can snapshot the store
//
// # Usage
//
//	srv := server.New(cfg.Metrics.ListenAddr, st, m, log)
//	if err := srv.Start(); err != nil {
//		return err
//	}
//	defer srv.Shutdown(context.Background())
package server

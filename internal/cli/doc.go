// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the litechat command line: argument parsing, the
// engine commands and the shared output conventions.
//
// # Key Types
//
//   - Args: parsed global and command flags
//   - Command: the command to run
//   - Runner: executes engine commands against an app.App
//   - JSONResponse: the --json envelope every command prints
//
// # Usage
//
//	args, err := cli.ParseArgs(os.Args[1:])
//	if err != nil {
//		cli.DisplayError(os.Stderr, "", err, false)
//		os.Exit(cli.GetExitCode(err))
//	}
//	a, err := app.New(app.Options{Config: cfg})
//	...
//	err = cli.NewRunner(a, args).Run(ctx, args)
//
// # Commands
//
//   - tui: full-screen viewer (falls back to show without a terminal)
//   - list, show: stored conversations and their interactions
//   - replay: stream a recorded response into a new interaction
//   - rate, clear: change stored interactions
//   - shell: line-oriented session publishing controller requests
//   - serve: /healthz, /metrics and /v1/state
//   - config, version, help: no storage needed
//
// Every command supports --json.
package cli

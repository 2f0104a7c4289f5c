// litechat - interaction lifecycle and streaming engine.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DimitriGilbert/LiteChat-sub000/internal/app"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/cli"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/config"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// closeTimeout bounds the flush of storage, tracing and the server on exit.
const closeTimeout = 5 * time.Second

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	os.Exit(run())
}

func run() int {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	args, err := cli.Parse()
	if err != nil {
		cli.DisplayError(os.Stderr, "litechat", err, args.JSON)
		if !args.JSON {
			fmt.Fprintln(os.Stderr, "Run 'litechat help' for usage.")
		}
		return cli.GetExitCode(err)
	}

	switch args.Command {
	case cli.CmdHelp:
		cli.PrintUsage(os.Stdout)
		return cli.ExitSuccess
	case cli.CmdVersion:
		return exitOn(args, cli.PrintVersion(os.Stdout, args.JSON))
	case cli.CmdConfig:
		return exitOn(args, cli.HandleConfig(os.Stdout, args))
	}

	cfg, err := loadConfig(args)
	if err != nil {
		return exitOn(args, err)
	}

	a, err := app.New(app.Options{Config: cfg})
	if err != nil {
		return exitOn(args, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	runErr := cli.NewRunner(a, args).Run(ctx, args)
	stop()

	closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := a.Close(closeCtx); err != nil && runErr == nil {
		runErr = err
	}
	return exitOn(args, runErr)
}

// loadConfig reads --config when given, the global configuration otherwise,
// and applies the command line overrides.
func loadConfig(args cli.Args) (*config.Config, error) {
	var cfg *config.Config
	if args.ConfigPath != "" {
		loaded, err := config.LoadFromPath(args.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.Global().Clone()
	}

	if args.Backend != "" {
		cfg.Storage.Backend = args.Backend
	}
	if args.Theme != "" {
		cfg.UI.Theme = args.Theme
	}
	if args.Verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	config.SetGlobal(cfg)
	return cfg, nil
}

func exitOn(args cli.Args, err error) int {
	if err == nil {
		return cli.ExitSuccess
	}
	cli.DisplayError(os.Stderr, args.Command.String(), err, args.JSON)
	return cli.GetExitCode(err)
}

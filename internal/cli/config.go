// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - The config command.
//
// Subcommands:
//
//	show (default)      Display the effective configuration
//	get <key>           Print one value
//	set <key> <value>   Change a value and save
//	path                Print the config file location
//	init                Write the defaults to the config file
//
// Keys use dot notation, e.g. stream.text_fps or storage.backend.

package cli

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/DimitriGilbert/LiteChat-sub000/internal/config"
)

// HandleConfig runs the config command. It works without opening storage.
func HandleConfig(w io.Writer, args Args) error {
	path, err := configPath(args)
	if err != nil {
		return err
	}

	switch args.Subcommand {
	case "show", "":
		return configShow(w, args, path)
	case "get":
		return configGet(w, args, path)
	case "set":
		return configSet(w, args, path)
	case "path":
		if args.JSON {
			return NewJSONResponse("config path", map[string]string{"path": path}).Write(w)
		}
		fmt.Fprintln(w, path)
		return nil
	case "init":
		return configInit(w, args, path)
	case "keys":
		for _, k := range config.GetAllKeys() {
			fmt.Fprintln(w, k)
		}
		return nil
	default:
		return &ValidationError{
			Field:   "config subcommand",
			Value:   args.Subcommand,
			Reason:  "unknown",
			Example: "litechat config [show|get|set|path|init|keys]",
		}
	}
}

func configPath(args Args) (string, error) {
	if args.ConfigPath != "" {
		return args.ConfigPath, nil
	}
	return config.ConfigPathTOML()
}

// loadConfig reads path when it exists and the defaults otherwise.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			cfg := config.Default()
			cfg.ApplyEnvOverrides()
			return cfg, nil
		}
		return nil, err
	}
	return config.LoadFromPath(path)
}

func configShow(w io.Writer, args Args, path string) error {
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	if args.JSON {
		// String redacts the DSN
		fmt.Fprintln(w, cfg.String())
		return nil
	}

	fmt.Fprintln(w, RenderConditional(TitleStyle, "litechat configuration"))
	fmt.Fprintf(w, "%s\n\n", RenderConditional(DimStyle, path))
	keys := config.GetAllKeys()
	sort.Strings(keys)
	for _, k := range keys {
		v, err := cfg.Get(k)
		if err != nil {
			continue
		}
		if k == "storage.dsn" && v != "" {
			v = "[REDACTED]"
		}
		fmt.Fprintf(w, "%s %v\n", RenderLabel(k), v)
	}
	return nil
}

func configGet(w io.Writer, args Args, path string) error {
	if len(args.Positional) < 1 {
		return ErrMissingArgument("key", "litechat config get stream.text_fps")
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	v, err := cfg.Get(args.Positional[0])
	if err != nil {
		return NewValidationError("key", args.Positional[0], err.Error())
	}
	if args.JSON {
		return NewJSONResponse("config get", map[string]any{args.Positional[0]: v}).Write(w)
	}
	fmt.Fprintln(w, v)
	return nil
}

func configSet(w io.Writer, args Args, path string) error {
	if len(args.Positional) < 2 {
		return ErrMissingArgument("value", "litechat config set stream.text_fps 20")
	}
	key, value := args.Positional[0], args.Positional[1]

	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	if err := cfg.Set(key, value); err != nil {
		return NewValidationError("key", key, err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config not saved: %w", err)
	}
	if err := ensureDirFor(path); err != nil {
		return err
	}
	if err := config.SaveTOML(cfg, path); err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("config set", map[string]string{"key": key, "value": value}).Write(w)
	}
	fmt.Fprintf(w, "%s %s = %s\n", RenderConditional(SuccessStyle, "[OK]"), key, value)
	return nil
}

func configInit(w io.Writer, args Args, path string) error {
	if _, err := os.Stat(path); err == nil && !args.Yes {
		return NewCommandError("config", "init", path+" already exists (use --yes to overwrite)", nil)
	}
	if err := ensureDirFor(path); err != nil {
		return err
	}
	if err := config.SaveTOML(config.Default(), path); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s wrote %s\n", RenderConditional(SuccessStyle, "[OK]"), path)
	return nil
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command line parsing for litechat.

package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

// Version information, set at build time.
var (
	Version   = "0.3.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command is the command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdList
	CmdShow
	CmdReplay
	CmdRate
	CmdClear
	CmdConfig
	CmdShell
	CmdServe
	CmdVersion
	CmdHelp
)

var commandNames = map[string]Command{
	"tui":     CmdTUI,
	"view":    CmdTUI,
	"list":    CmdList,
	"ls":      CmdList,
	"show":    CmdShow,
	"replay":  CmdReplay,
	"rate":    CmdRate,
	"clear":   CmdClear,
	"delete":  CmdClear,
	"config":  CmdConfig,
	"shell":   CmdShell,
	"serve":   CmdServe,
	"version": CmdVersion,
	"help":    CmdHelp,
}

// String returns the canonical command name.
func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdList:
		return "list"
	case CmdShow:
		return "show"
	case CmdReplay:
		return "replay"
	case CmdRate:
		return "rate"
	case CmdClear:
		return "clear"
	case CmdConfig:
		return "config"
	case CmdShell:
		return "shell"
	case CmdServe:
		return "serve"
	case CmdVersion:
		return "version"
	default:
		return "help"
	}
}

// NeedsEngine reports whether the command opens storage.
func (c Command) NeedsEngine() bool {
	switch c {
	case CmdConfig, CmdVersion, CmdHelp:
		return false
	default:
		return true
	}
}

// Args holds parsed arguments.
type Args struct {
	Command Command

	// Global flags
	JSON       bool
	Quiet      bool
	Verbose    bool
	Yes        bool
	ConfigPath string
	Backend    string
	Theme      string

	// Conversation is the conversation the command works on, from
	// --conversation or the first positional
	Conversation string

	// Command specific
	File       string
	Delay      int // ms, -1 when not given
	Model      string
	Prompt     string
	Addr       string
	Subcommand string

	// Positional are the arguments after the command name
	Positional []string

	parser *ArgParser
}

// Parser exposes the underlying parser for command-specific flags.
func (a Args) Parser() *ArgParser {
	if a.parser == nil {
		return NewArgParser(nil)
	}
	return a.parser
}

var boolFlags = []string{"json", "quiet", "q", "verbose", "v", "yes", "y", "help", "h", "version"}

// Parse parses os.Args.
func Parse() (Args, error) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses argv, the arguments after the program name. No command
// means the viewer.
func ParseArgs(argv []string) (Args, error) {
	p := NewArgParser(argv, boolFlags...)

	args := Args{
		JSON:         p.BoolFlag("json"),
		Quiet:        p.BoolFlag("quiet", "q"),
		Verbose:      p.BoolFlag("verbose", "v"),
		Yes:          p.BoolFlag("yes", "y"),
		ConfigPath:   p.Flag("config"),
		Backend:      p.Flag("backend"),
		Theme:        p.Flag("theme"),
		Conversation: p.Flag("conversation", "c"),
		File:         p.Flag("file", "f"),
		Delay:        p.FlagIntOrDefault("delay", -1),
		Model:        p.Flag("model", "m"),
		Prompt:       p.Flag("prompt", "p"),
		Addr:         p.Flag("addr"),
		parser:       p,
	}

	if p.HasFlag("delay") {
		if _, err := p.FlagInt("delay"); err != nil || args.Delay < 0 {
			return args, &ValidationError{Field: "delay", Value: p.Flag("delay"), Reason: "must be a non-negative number of milliseconds"}
		}
	}

	switch {
	case p.BoolFlag("help", "h"):
		args.Command = CmdHelp
		return args, nil
	case p.BoolFlag("version"):
		args.Command = CmdVersion
		return args, nil
	}

	name := p.Subcommand()
	if name == "" {
		args.Command = CmdTUI
		return args, nil
	}
	cmd, ok := commandNames[strings.ToLower(name)]
	if !ok {
		return args, &ValidationError{
			Field:   "command",
			Value:   name,
			Reason:  "unknown command",
			Example: "litechat help",
		}
	}
	args.Command = cmd
	args.Positional = p.PositionalFrom(1)

	switch cmd {
	case CmdConfig:
		args.Subcommand = p.Positional(1)
		if args.Subcommand == "" {
			args.Subcommand = "show"
		}
		args.Positional = p.PositionalFrom(2)
	case CmdShow, CmdReplay, CmdRate, CmdClear, CmdTUI, CmdShell:
		if args.Conversation == "" && len(args.Positional) > 0 {
			args.Conversation = args.Positional[0]
			args.Positional = args.Positional[1:]
		}
	}
	return args, nil
}

const usageText = `litechat - interaction lifecycle and streaming engine

Usage:
  litechat [tui] [conversation]           Open the stream viewer
  litechat list                           List stored conversations
  litechat show <conversation>            Print a conversation's interactions
  litechat replay <conversation> [text]   Stream a recorded response into a new interaction
  litechat rate <conversation> <id|index> <rating|clear>
                                          Rate an interaction (-5..5)
  litechat clear <conversation>           Delete a conversation's interactions
  litechat shell [conversation]           Line-oriented session on the engine
  litechat serve [conversation]           Serve /metrics, /healthz and /v1/state
  litechat config [show|get|set|path|init]
  litechat version

Replay:
  -f, --file PATH       NDJSON (Ollama /api/chat stream) or plain text; "-" reads stdin
  --delay MS            Pause between chunks (default ui.replay_chunk_ms)
  -p, --prompt TEXT     Prompt recorded on the interaction
  -m, --model NAME      Model recorded when the stream names none

Global flags:
  -c, --conversation ID Conversation to open
  --backend NAME        sqlite, postgres, json or memory (overrides storage.backend)
  --config PATH         Config file (default ~/.litechat/config.toml)
  --theme NAME          auto, dark, light or plain
  --addr HOST:PORT      Listen address for serve
  --json                Machine-readable output
  -y, --yes             Skip confirmation prompts
  -q, --quiet           Less output
  -v, --verbose         Debug logging

Examples:
  litechat replay demo --file testdata/stream.ndjson --delay 30
  echo "hello there" | litechat replay demo -f - --prompt greet
  litechat show demo --json
  litechat rate demo 2 +1
  litechat config set stream.text_fps 20
`

// PrintUsage writes the help text.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, usageText)
}

// PrintVersion writes the version, as JSON in JSON mode.
func PrintVersion(w io.Writer, jsonMode bool) error {
	if jsonMode {
		return NewJSONResponse("version", VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}).Write(w)
	}
	_, err := fmt.Fprintf(w, "litechat %s (%s, built %s, %s)\n", Version, GitCommit, BuildDate, runtime.Version())
	return err
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// shell.go - A line-oriented session on the engine.
//
// Requests go through the bus as controller request events, the same path
// a UI takes. Plain input starts an echo interaction whose response
// replays the input, which is enough to watch a stream end to end.
//
// Commands:
//
//	/open <conversation>    switch the active conversation
//	/reload                 reload the active conversation
//	/list                   list stored conversations
//	/show                   print the held interactions
//	/rate <ref> <n|clear>   rate an interaction by ID or index
//	/regen <ref>            replay an interaction's response as a regeneration
//	/clear                  drop the held interactions (storage untouched)
//	/status                 show the store status
//	/help, /quit

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/DimitriGilbert/LiteChat-sub000/internal/config"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/controller"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/events"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/interaction"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/replay"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/store"
)

// =============================================================================
// LINE INPUT
// =============================================================================

// LineReader reads one line after showing a prompt. *liner.State is one.
type LineReader interface {
	Prompt(prompt string) (string, error)
}

// historyLiner wraps liner with a history file.
type historyLiner struct {
	*liner.State
	path string
}

func newHistoryLiner() *historyLiner {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	h := &historyLiner{State: line, path: filepath.Join(dir, "shell_history")}
	if f, err := os.Open(h.path); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	return h
}

func (h *historyLiner) Prompt(prompt string) (string, error) {
	input, err := h.State.Prompt(prompt)
	if err == nil && strings.TrimSpace(input) != "" {
		h.AppendHistory(input)
	}
	return input, err
}

// Close saves history, owner-only since prompts are private, and restores
// the terminal.
func (h *historyLiner) Close() error {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(h.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
			_, _ = h.WriteHistory(f)
			f.Close()
		}
	}
	return h.State.Close()
}

// =============================================================================
// SHELL
// =============================================================================

// Shell runs the interactive session until /quit, EOF or ctx is done.
func (r *Runner) Shell(ctx context.Context, args Args) error {
	h := newHistoryLiner()
	defer h.Close()
	return r.RunShell(ctx, args, h)
}

// RunShell runs the session reading lines from in.
func (r *Runner) RunShell(ctx context.Context, args Args, in LineReader) error {
	printer := newStreamPrinter(r.Out)
	r.App.NewPresenter(printer.sink)

	sh := &shell{r: r, printer: printer, quiet: args.Quiet}
	if args.Conversation != "" {
		sh.publish(controller.RequestSetConversationEvent, controller.ConversationRequest{ConversationID: args.Conversation})
	}
	if !args.Quiet {
		r.printf("%s  type /help for commands\n", r.style(TitleStyle, "litechat shell"))
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := in.Prompt(sh.prompt())
		switch {
		case errors.Is(err, io.EOF), errors.Is(err, liner.ErrPromptAborted):
			r.printf("\n")
			return nil
		case err != nil:
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			sh.echo(ctx, line)
			continue
		}
		if quit := sh.command(ctx, line); quit {
			return nil
		}
	}
}

type shell struct {
	r       *Runner
	printer *streamPrinter
	quiet   bool
}

func (s *shell) prompt() string {
	conv := s.r.App.Store.ConversationID()
	if conv == "" {
		conv = "-"
	}
	return conv + "> "
}

func (s *shell) publish(name events.Name, payload any) {
	s.r.App.Bus.Publish(name, payload)
}

func (s *shell) fail(err error) {
	fmt.Fprintf(s.r.Out, "%s %v\n", s.r.style(ErrorStyle, "[ERROR]"), err)
}

// command runs one slash command and reports whether to quit.
func (s *shell) command(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	cmd, rest := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "/quit", "/q", "/exit":
		return true

	case "/help", "/h", "/?":
		s.help()

	case "/open", "/o":
		if len(rest) == 0 {
			s.fail(ErrMissingArgument("conversation", "/open <conversation>"))
			break
		}
		s.publish(controller.RequestSetConversationEvent, controller.ConversationRequest{ConversationID: rest[0]})
		s.r.printf("%d interactions\n", len(s.r.App.Store.Interactions()))

	case "/reload":
		s.publish(controller.RequestLoadEvent, controller.ConversationRequest{ConversationID: s.r.App.Store.ConversationID()})

	case "/list", "/ls":
		if err := s.r.List(ctx, Args{}); err != nil {
			s.fail(err)
		}

	case "/show":
		md := newMarkdown(s.r.Theme, s.r.Width)
		for _, it := range s.r.App.Store.Interactions() {
			s.r.printInteraction(md, it)
		}

	case "/rate":
		if len(rest) < 2 {
			s.fail(ErrMissingArgument("rating", "/rate <id|index> <-5..5|clear>"))
			break
		}
		it, err := s.r.resolve(rest[0])
		if err != nil {
			s.fail(err)
			break
		}
		rating, err := parseRating(rest[1])
		if err != nil {
			s.fail(err)
			break
		}
		s.publish(controller.RequestRateEvent, controller.RateRequest{InteractionID: it.ID, Rating: rating})

	case "/regen":
		if len(rest) == 0 {
			s.fail(ErrMissingArgument("interaction", "/regen <id|index>"))
			break
		}
		s.regenerate(ctx, rest[0])

	case "/clear":
		s.publish(controller.RequestClearEvent, nil)

	case "/status", "/s":
		st := s.r.App.Store.Snapshot()
		s.r.printf("%s  %d interactions, %d streaming\n",
			s.r.Theme.Badge(string(st.Status)), len(st.Interactions), len(st.StreamingIDs))
		if st.Error != "" {
			s.r.printf("%s\n", s.r.style(ErrorStyle, "error: "+st.Error))
		}

	default:
		s.fail(fmt.Errorf("unknown command: %s (type /help for commands)", cmd))
	}

	if msg := s.r.App.Store.Error(); msg != "" && cmd != "/status" && cmd != "/s" {
		s.r.printf("%s\n", s.r.style(WarningStyle, "store error: "+msg))
	}
	return false
}

func (s *shell) help() {
	s.r.printf(`  /open <conversation>    switch conversation
  /reload                 reload from storage
  /list                   stored conversations
  /show                   held interactions
  /rate <ref> <n|clear>   rate by ID or index
  /regen <ref>            replay a response as a regeneration
  /clear                  drop held interactions
  /status                 store status
  /quit                   leave
  anything else           echo it back as a streamed response
`)
}

// echo streams line back as the response to line.
func (s *shell) echo(ctx context.Context, line string) {
	s.stream(ctx, store.StartParams{
		Prompt:   &interaction.Prompt{Content: line},
		Metadata: interaction.Metadata{ModelID: "echo"},
	}, line)
}

// regenerate replays the recorded response of ref as a new interaction
// linked to it.
func (s *shell) regenerate(ctx context.Context, ref string) {
	orig, err := s.r.resolve(ref)
	if err != nil {
		s.fail(err)
		return
	}
	s.stream(ctx, store.StartParams{
		Type:     orig.Type,
		Prompt:   orig.Prompt.Clone(),
		ParentID: orig.ID,
		Metadata: interaction.Metadata{ModelID: orig.Metadata.ModelID},
	}, orig.ResponseText())
}

func (s *shell) stream(ctx context.Context, params store.StartParams, text string) {
	if s.r.App.Store.ConversationID() == "" {
		s.fail(errors.New("no conversation open (use /open <conversation>)"))
		return
	}
	it, err := s.r.App.Producer().Run(ctx, params, replay.Slice(replay.FromText(text)))
	if it == nil {
		s.fail(err)
		return
	}
	select {
	case <-s.printer.final:
	case <-time.After(finalWait):
	}
	s.r.printf("\n")
	if err != nil {
		s.fail(err)
		return
	}
	if !s.quiet {
		if final, ok := s.r.App.Store.Get(it.ID); ok {
			s.r.printf("%s\n", s.r.style(DimStyle, replaySummary(final)))
		}
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// tui.go - The full-screen stream viewer.

package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/DimitriGilbert/LiteChat-sub000/internal/interaction"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/store"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/ui/chat"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/ui/styles"
)

// TUI opens the viewer on args.Conversation. Without a terminal it falls
// back to Show, or List without a conversation. With --file or text the
// replay key streams the recording into the viewer.
func (r *Runner) TUI(ctx context.Context, args Args) error {
	if !r.Interactive || !IsStdoutTTY() {
		if args.Conversation == "" {
			return r.List(ctx, args)
		}
		return r.Show(ctx, args)
	}

	if args.Conversation != "" {
		if err := r.open(ctx, "tui", args.Conversation); err != nil {
			return err
		}
	}

	themeName := args.Theme
	if themeName == "" {
		themeName = r.App.Config.UI.Theme
	}
	opts := []chat.Option{chat.WithContext(ctx)}
	if fn := r.tuiReplay(args); fn != nil {
		opts = append(opts, chat.WithReplay(fn))
	}

	model := chat.New(r.App.Store, r.App.Controller, styles.NewTheme(themeName), opts...)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())

	// Both feeds call p.Send, which blocks until the program reads, so the
	// model never calls the store from Update.
	unbind := chat.Bind(r.App.Bus, p.Send)
	defer unbind()
	r.App.NewPresenter(chat.SnapshotSink(p.Send))

	if path, err := configPath(args); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := r.App.WatchConfig(ctx, path); err != nil {
				r.App.Log.Warn().Err(err).Msg("config watch disabled")
			}
		}
	}
	if r.App.Config.Metrics.Enabled {
		if _, err := r.App.StartServer(); err != nil {
			r.App.Log.Warn().Err(err).Msg("metrics server disabled")
		}
	}

	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("viewer: %w", err)
	}
	return nil
}

// tuiReplay returns the replay key's action, nil when there is nothing to
// replay.
func (r *Runner) tuiReplay(args Args) func(context.Context) error {
	// stdin belongs to the viewer
	if (args.File == "" && len(args.Positional) == 0) || args.File == "-" {
		return nil
	}
	return func(ctx context.Context) error {
		// each replay reads the recording afresh
		src, _, closeSrc, err := r.replaySource(args)
		if err != nil {
			return err
		}
		defer closeSrc()

		params := store.StartParams{Metadata: interaction.Metadata{ModelID: args.Model}}
		if args.Prompt != "" {
			params.Prompt = &interaction.Prompt{Content: args.Prompt}
		}
		producer := r.App.Producer()
		if args.Delay >= 0 {
			producer.Delay = delayOf(args)
		}
		_, err = producer.Run(ctx, params, src)
		return err
	}
}

func delayOf(args Args) time.Duration {
	return time.Duration(args.Delay) * time.Millisecond
}

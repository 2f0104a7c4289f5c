// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// runner.go - Commands that work on stored conversations: list, show,
// rate, clear and serve.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/DimitriGilbert/LiteChat-sub000/internal/app"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/interaction"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/telemetry"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/ui/styles"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/util"
)

// =============================================================================
// RUNNER
// =============================================================================

// Runner executes engine commands against one App.
type Runner struct {
	App *app.App

	Out io.Writer
	Err io.Writer
	In  io.Reader

	// Interactive is set when In is a terminal
	Interactive bool

	// Color enables styled output and syntax highlighting
	Color bool

	Theme *styles.Theme
	Width int
}

// NewRunner creates a runner on the process's standard streams.
func NewRunner(a *app.App, args Args) *Runner {
	color := ColorsEnabled() && !args.JSON
	themeName := args.Theme
	if themeName == "" {
		themeName = a.Config.UI.Theme
	}
	if !color {
		themeName = styles.ThemePlain
	}
	return &Runner{
		App:         a,
		Out:         os.Stdout,
		Err:         os.Stderr,
		In:          os.Stdin,
		Interactive: IsTTY(),
		Color:       color,
		Theme:       styles.NewTheme(themeName),
		Width:       GetTerminalWidth(),
	}
}

// Run dispatches args to its command.
func (r *Runner) Run(ctx context.Context, args Args) error {
	switch args.Command {
	case CmdList:
		return r.List(ctx, args)
	case CmdShow:
		return r.Show(ctx, args)
	case CmdReplay:
		return r.Replay(ctx, args)
	case CmdRate:
		return r.Rate(ctx, args)
	case CmdClear:
		return r.Clear(ctx, args)
	case CmdShell:
		return r.Shell(ctx, args)
	case CmdServe:
		return r.Serve(ctx, args)
	case CmdTUI:
		return r.TUI(ctx, args)
	default:
		return NewValidationError("command", args.Command.String(), "not an engine command")
	}
}

func (r *Runner) printf(format string, a ...any) {
	fmt.Fprintf(r.Out, format, a...)
}

func (r *Runner) style(s interface{ Render(...string) string }, text string) string {
	if !r.Color {
		return text
	}
	return s.Render(text)
}

// open makes conversationID active, loading its interactions.
func (r *Runner) open(ctx context.Context, command, conversationID string) error {
	if conversationID == "" {
		return ErrMissingArgument("conversation", "litechat "+command+" <conversation>")
	}
	if err := r.App.Store.SetCurrentConversationID(ctx, conversationID); err != nil {
		return NewCommandError(command, "load", conversationID, err)
	}
	return nil
}

// =============================================================================
// LIST
// =============================================================================

// List prints the stored conversations, most recent first.
func (r *Runner) List(ctx context.Context, args Args) error {
	metas, err := r.App.Gateway.ListConversations(ctx)
	if err != nil {
		return NewCommandError("list", "read", "listing conversations", err)
	}
	if args.JSON {
		return NewJSONResponse("list", metas).Write(r.Out)
	}
	if len(metas) == 0 {
		r.printf("%s\n", r.style(DimStyle, "No conversations stored."))
		return nil
	}

	idWidth := len("CONVERSATION")
	for _, m := range metas {
		if w := util.StringWidth(m.ID); w > idWidth {
			idWidth = w
		}
	}
	previewWidth := r.Width - idWidth - 6 - 18 - 6
	if previewWidth < 10 {
		previewWidth = 10
	}

	r.printf("%s  %5s  %-16s  %s\n",
		r.style(TitleStyle, util.PadWidth("CONVERSATION", idWidth)), "COUNT", "UPDATED", "PREVIEW")
	for _, m := range metas {
		updated := "-"
		if !m.UpdatedAt.IsZero() {
			updated = m.UpdatedAt.Local().Format("2006-01-02 15:04")
		}
		r.printf("%s  %5d  %-16s  %s\n",
			util.PadWidth(m.ID, idWidth),
			m.InteractionCount,
			updated,
			r.style(DimStyle, util.TruncateWidth(util.SingleLine(m.Preview), previewWidth)))
	}
	return nil
}

// =============================================================================
// SHOW
// =============================================================================

// Show prints a conversation's interactions and a usage summary.
func (r *Runner) Show(ctx context.Context, args Args) error {
	if err := r.open(ctx, "show", args.Conversation); err != nil {
		return err
	}
	items := r.App.Store.Interactions()
	usage := telemetry.Summarize(items)

	if args.JSON {
		data, err := NewJSONResponse("show", ShowData{
			ConversationID: args.Conversation,
			Interactions:   items,
			Usage:          usage,
		}).Marshal()
		if err != nil {
			return err
		}
		out := string(data)
		if r.Color {
			out = r.Theme.Highlight(out, "json")
		}
		r.printf("%s\n", out)
		return nil
	}

	if len(items) == 0 {
		r.printf("%s\n", r.style(DimStyle, "No interactions in "+args.Conversation+"."))
		return nil
	}

	md := newMarkdown(r.Theme, r.Width)
	for i, it := range items {
		if i > 0 {
			r.printf("%s\n", RenderSeparator(min(r.Width, 60)))
		}
		r.printInteraction(md, it)
	}
	if !args.Quiet {
		r.printf("\n%s\n", r.style(DimStyle, usageLine(usage)))
	}
	return nil
}

func (r *Runner) printInteraction(md *markdown, it *interaction.Interaction) {
	header := fmt.Sprintf("#%d %s", it.Index, r.Theme.Badge(string(it.Status)))
	if it.Metadata.ModelID != "" {
		header += "  " + it.Metadata.ModelID
	}
	if it.Rating != nil {
		header += fmt.Sprintf("  rated %+d", *it.Rating)
	}
	if it.ParentID != "" {
		header += "  regenerated"
	}
	r.printf("%s  %s\n", header, r.style(DimStyle, it.ID))

	if it.Prompt != nil && it.Prompt.Content != "" {
		r.printf("%s %s\n", r.style(PromptStyle, "you:"), it.Prompt.Content)
	}
	if it.Metadata.Reasoning != "" {
		r.printf("%s\n", r.style(DimStyle, "thinking: "+util.TruncateWidth(util.SingleLine(it.Metadata.Reasoning), r.Width-10)))
	}
	if text := it.ResponseText(); text != "" {
		r.printf("%s\n", strings.TrimRight(md.render(text), "\n"))
	}
	if it.Metadata.Error != "" {
		r.printf("%s\n", r.style(ErrorStyle, "error: "+it.Metadata.Error))
	}
}

func usageLine(u telemetry.Usage) string {
	parts := []string{
		fmt.Sprintf("%d interactions", u.Interactions),
		fmt.Sprintf("%d completed", u.Completed),
	}
	if u.Errored > 0 {
		parts = append(parts, fmt.Sprintf("%d errored", u.Errored))
	}
	if u.TotalTokens() > 0 {
		parts = append(parts, fmt.Sprintf("%d tokens", u.TotalTokens()))
	}
	if u.AvgTimeToFirstToken > 0 {
		parts = append(parts, "avg first token "+u.AvgTimeToFirstToken.Round(time.Millisecond).String())
	}
	return strings.Join(parts, ", ")
}

// =============================================================================
// RATE
// =============================================================================

// Rate sets or clears the rating of one interaction, named by ID or index.
func (r *Runner) Rate(ctx context.Context, args Args) error {
	const usage = "litechat rate <conversation> <id|index> <-5..5|clear>"
	if err := r.open(ctx, "rate", args.Conversation); err != nil {
		return err
	}
	if len(args.Positional) < 2 {
		return ErrMissingArgument("rating", usage)
	}

	it, err := r.resolve(args.Positional[0])
	if err != nil {
		return err
	}
	rating, err := parseRating(args.Positional[1])
	if err != nil {
		return err
	}
	if err := r.App.Controller.RequestRate(ctx, it.ID, rating); err != nil {
		return NewCommandError("rate", "save", it.ID, err)
	}

	if args.JSON {
		return NewJSONResponse("rate", RateData{InteractionID: it.ID, Index: it.Index, Rating: rating}).Write(r.Out)
	}
	if rating == nil {
		r.printf("%s rating cleared on #%d\n", r.style(SuccessStyle, "[OK]"), it.Index)
	} else {
		r.printf("%s rated #%d %+d\n", r.style(SuccessStyle, "[OK]"), it.Index, *rating)
	}
	return nil
}

// resolve finds a held interaction by ID, by index, or by "#index".
func (r *Runner) resolve(ref string) (*interaction.Interaction, error) {
	if it, ok := r.App.Store.Get(ref); ok {
		return it, nil
	}
	if n, err := strconv.Atoi(strings.TrimPrefix(ref, "#")); err == nil {
		for _, it := range r.App.Store.Interactions() {
			if it.Index == n {
				return it, nil
			}
		}
	}
	return nil, ErrNotFound("interaction", ref)
}

// parseRating accepts an integer in range or clear/none.
func parseRating(s string) (*int, error) {
	switch strings.ToLower(s) {
	case "clear", "none", "unset":
		return nil, nil
	}
	n, err := strconv.Atoi(strings.TrimPrefix(s, "+"))
	if err != nil {
		return nil, &ValidationError{Field: "rating", Value: s, Reason: "not a number", Example: "+1, -2 or clear"}
	}
	rating := interaction.Ptr(n)
	if err := interaction.ValidateRating(rating); err != nil {
		return nil, &ValidationError{Field: "rating", Value: s, Reason: err.Error()}
	}
	return rating, nil
}

// =============================================================================
// CLEAR
// =============================================================================

// Clear deletes every stored interaction of a conversation.
func (r *Runner) Clear(ctx context.Context, args Args) error {
	if args.Conversation == "" {
		return ErrMissingArgument("conversation", "litechat clear <conversation>")
	}
	ok, err := RequireConfirmation("delete every interaction of "+args.Conversation, ConfirmationOptions{
		Yes:         args.Yes,
		JSONMode:    args.JSON,
		Interactive: r.Interactive,
		In:          r.In,
		Out:         r.Out,
	})
	if err != nil {
		return err
	}
	if !ok {
		r.printf("%s\n", r.style(DimStyle, "Cancelled."))
		return nil
	}

	if err := r.App.Store.DeleteConversation(ctx, args.Conversation); err != nil {
		return NewCommandError("clear", "delete", args.Conversation, err)
	}
	if args.JSON {
		return NewJSONResponse("clear", map[string]string{"conversation_id": args.Conversation}).Write(r.Out)
	}
	r.printf("%s deleted %s\n", r.style(SuccessStyle, "[OK]"), args.Conversation)
	return nil
}

// =============================================================================
// SERVE
// =============================================================================

// Serve runs the metrics and state endpoints until ctx is done.
func (r *Runner) Serve(ctx context.Context, args Args) error {
	if args.Conversation != "" {
		if err := r.open(ctx, "serve", args.Conversation); err != nil {
			return err
		}
	}
	r.App.Config.Metrics.Enabled = true
	if args.Addr != "" {
		r.App.Config.Metrics.ListenAddr = args.Addr
	}

	srv, err := r.App.StartServer()
	if err != nil {
		return err
	}
	if !args.Quiet {
		r.printf("Serving on http://%s (/healthz, /metrics, /v1/state). Ctrl+C to stop.\n", srv.Addr())
	}

	<-ctx.Done()
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

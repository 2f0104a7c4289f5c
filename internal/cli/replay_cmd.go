// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// replay_cmd.go - The replay command streams a recorded response into a new
// interaction, exercising the full lifecycle: start, chunks, throttled
// display and finalization. Ctrl+C stops the stream and keeps the partial
// output.

package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/DimitriGilbert/LiteChat-sub000/internal/interaction"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/replay"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/store"
)

// finalWait bounds how long replay waits for the presenter's last flush.
const finalWait = 2 * time.Second

// Replay runs the replay command.
func (r *Runner) Replay(ctx context.Context, args Args) error {
	if err := r.open(ctx, "replay", args.Conversation); err != nil {
		return err
	}

	src, counter, closeSrc, err := r.replaySource(args)
	if err != nil {
		return err
	}
	defer closeSrc()

	var printer *streamPrinter
	if !args.JSON && !args.Quiet {
		printer = newStreamPrinter(r.Out)
		r.App.NewPresenter(printer.sink)
	}

	producer := r.App.Producer()
	if args.Delay >= 0 {
		producer.Delay = delayOf(args)
	}

	params := store.StartParams{Metadata: interaction.Metadata{ModelID: args.Model}}
	if args.Prompt != "" {
		params.Prompt = &interaction.Prompt{Content: args.Prompt}
	}

	it, runErr := producer.Run(ctx, params, src)
	if it == nil {
		return NewCommandError("replay", "start", args.Conversation, runErr)
	}
	if printer != nil {
		select {
		case <-printer.final:
		case <-time.After(finalWait):
		}
		r.printf("\n")
	}

	final, ok := r.App.Store.Get(it.ID)
	if !ok {
		final = it
	}

	if args.JSON {
		resp := NewJSONResponse("replay", ReplayData{Interaction: final, Chunks: counter()})
		if runErr != nil {
			msg := runErr.Error()
			resp.Success, resp.Error = false, &msg
		}
		if err := resp.Write(r.Out); err != nil {
			return err
		}
		return runErr
	}

	if !args.Quiet {
		r.printf("%s\n", r.style(DimStyle, replaySummary(final)))
	}
	if errors.Is(runErr, context.Canceled) {
		fmt.Fprintln(r.Err, "stopped")
	}
	return runErr
}

func replaySummary(it *interaction.Interaction) string {
	parts := []string{fmt.Sprintf("#%d %s", it.Index, it.Status)}
	if it.EndedAt != nil {
		parts = append(parts, it.EndedAt.Sub(it.StartedAt).Round(time.Millisecond).String())
	}
	if u := it.Metadata.Usage; u != nil && u.TotalTokens > 0 {
		parts = append(parts, fmt.Sprintf("%d tokens", u.TotalTokens))
	}
	if it.Metadata.Error != "" {
		parts = append(parts, it.Metadata.Error)
	}
	return strings.Join(parts, ", ")
}

// replaySource builds the chunk source from --file or the positional text.
// A file whose first non-blank byte is "{" is read as NDJSON, anything else
// as plain text. counter reports the chunks read so far.
func (r *Runner) replaySource(args Args) (src replay.Source, counter func() int, closeFn func(), err error) {
	closeFn = func() {}

	if args.File == "" {
		text := strings.Join(args.Positional, " ")
		if text == "" {
			return nil, nil, closeFn, ErrMissingArgument("text", "litechat replay <conversation> <text> | --file PATH")
		}
		chunks := replay.FromText(text)
		return replay.Slice(chunks), func() int { return len(chunks) }, closeFn, nil
	}

	var in io.Reader
	if args.File == "-" {
		in = r.In
	} else {
		f, openErr := os.Open(args.File)
		if openErr != nil {
			return nil, nil, closeFn, NewCommandError("replay", "open", args.File, openErr)
		}
		in = f
		closeFn = func() { f.Close() }
	}

	br := bufio.NewReader(in)
	if looksLikeNDJSON(br) {
		reader := replay.NewReader(br)
		return reader.Process, reader.Chunks, closeFn, nil
	}

	data, readErr := io.ReadAll(br)
	if readErr != nil {
		closeFn()
		return nil, nil, func() {}, NewCommandError("replay", "read", args.File, readErr)
	}
	chunks := replay.FromText(string(data))
	return replay.Slice(chunks), func() int { return len(chunks) }, closeFn, nil
}

func looksLikeNDJSON(br *bufio.Reader) bool {
	for n := 64; ; n *= 2 {
		peek, err := br.Peek(n)
		trimmed := bytes.TrimLeft(peek, " \t\r\n")
		if len(trimmed) > 0 {
			return trimmed[0] == '{'
		}
		if err != nil {
			return false
		}
	}
}

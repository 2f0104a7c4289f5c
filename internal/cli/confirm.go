// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// confirm.go - Confirmation of destructive commands.
//
//  1. --yes proceeds without prompting
//  2. --json requires --yes
//  3. without a terminal on stdin, --yes is required
//  4. otherwise the user is asked

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// ConfirmationOptions controls RequireConfirmation.
type ConfirmationOptions struct {
	// Yes is set by --yes / -y
	Yes bool

	JSONMode bool

	// Interactive reports whether In can be prompted
	Interactive bool

	In  io.Reader
	Out io.Writer
}

// RequireConfirmation reports whether action may proceed.
func RequireConfirmation(action string, opts ConfirmationOptions) (bool, error) {
	if opts.Yes {
		return true, nil
	}
	if opts.JSONMode {
		return false, errors.New("confirmation required: use --yes in JSON mode")
	}
	if !opts.Interactive || opts.In == nil {
		return false, errors.New("confirmation required but stdin is not a terminal; use --yes")
	}

	fmt.Fprintf(opts.Out, "%s [y/N]: ", WarningStyle.Render("Really "+action+"?"))
	input, err := bufio.NewReader(opts.In).ReadString('\n')
	if err != nil && input == "" {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	yes, err := ParseBoolString(input)
	return err == nil && yes, nil
}

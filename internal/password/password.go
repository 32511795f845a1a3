// Copyright (c) 2026 VeilForms, Inc.
//
// This file is part of veilkey.
//
// veilkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@veilforms.com for commercial licensing options.

// Package password reads export passwords from the terminal without
// echoing them. The returned bytes belong to the caller, which is
// expected to wrap them in an export.Password and zeroize after use.
package password

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"
)

// ErrMismatch is returned when a confirmation prompt does not match.
var ErrMismatch = errors.New("password: entries do not match")

// Read prompts on stderr and reads a password from stdin without echo.
// Returns an error if stdin is not a terminal.
func Read(prompt string) ([]byte, error) {
	fd := int(os.Stdin.Fd())

	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("cannot read password: stdin is not a terminal")
	}

	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)

	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	return secret, nil
}

// ReadConfirmed prompts twice and verifies both entries match. The
// confirmation copy is wiped before returning.
func ReadConfirmed(prompt, confirmPrompt string) ([]byte, error) {
	first, err := Read(prompt)
	if err != nil {
		return nil, err
	}

	second, err := Read(confirmPrompt)
	if err != nil {
		wipe(first)
		return nil, err
	}

	match := bytes.Equal(first, second)
	wipe(second)
	if !match {
		wipe(first)
		return nil, ErrMismatch
	}
	return first, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

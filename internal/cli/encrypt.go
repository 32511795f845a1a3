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

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/veilforms/veilkey/pkg/envelope"
)

// encryptCmd encrypts a payload against a form's public key.
var encryptCmd = &cobra.Command{
	Use:   "encrypt",
	Short: "Encrypt a submission payload with a public key",
	Long: `Encrypt data read from a file or stdin against a form's public JWK.
Each run uses a fresh AES-256-GCM session key wrapped with RSA-OAEP,
so encrypting the same payload twice produces different ciphertexts.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := getConfig()
		printer := NewPrinter(cfg.OutputFormat, os.Stdout)

		keyPath, _ := cmd.Flags().GetString("key")
		inPath, _ := cmd.Flags().GetString("in")
		outPath, _ := cmd.Flags().GetString("out")

		pub, err := readJWKFile(keyPath)
		if err != nil {
			handleError(err)
			return
		}

		plaintext, err := readInput(inPath)
		if err != nil {
			handleError(err)
			return
		}

		printVerbose("Encrypting %d bytes against kid %s", len(plaintext), pub.Kid)

		payload, err := envelope.Encrypt(plaintext, pub)
		if err != nil {
			handleError(fmt.Errorf("encryption failed: %w", err))
			return
		}

		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			handleError(err)
			return
		}

		if err := writeOutput(outPath, append(data, '\n'), 0o644); err != nil {
			handleError(err)
			return
		}

		if outPath != "" {
			if err := printer.PrintSuccess(fmt.Sprintf("Encrypted payload written to %s", outPath)); err != nil {
				handleError(err)
			}
		}
	},
}

func init() {
	encryptCmd.Flags().String("key", "", "public key JWK file (required)")
	encryptCmd.Flags().String("in", "", "plaintext file (default: stdin)")
	encryptCmd.Flags().String("out", "", "output file (default: stdout)")
	_ = encryptCmd.MarkFlagRequired("key")
}

// readInput reads a file, or stdin when path is empty.
func readInput(path string) ([]byte, error) {
	if path == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	// #nosec G304 - input file path is provided by the user
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// writeOutput writes to a file, or stdout when path is empty.
func writeOutput(path string, data []byte, mode os.FileMode) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

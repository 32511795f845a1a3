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

	"github.com/spf13/cobra"
	"github.com/veilforms/veilkey/pkg/envelope"
)

// decryptCmd decrypts an encrypted payload with a private key.
var decryptCmd = &cobra.Command{
	Use:   "decrypt",
	Short: "Decrypt a submission payload with a private key",
	Long: `Decrypt an encrypted payload JSON file with the form's private JWK.
Any failure, whether a wrong key or a tampered payload, reports the
same decryption error.`,
	Run: func(cmd *cobra.Command, args []string) {
		keyPath, _ := cmd.Flags().GetString("key")
		inPath, _ := cmd.Flags().GetString("in")
		outPath, _ := cmd.Flags().GetString("out")

		priv, err := readJWKFile(keyPath)
		if err != nil {
			handleError(err)
			return
		}

		raw, err := readInput(inPath)
		if err != nil {
			handleError(err)
			return
		}

		var payload envelope.EncryptedPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			handleError(fmt.Errorf("failed to parse payload: %w", err))
			return
		}

		plaintext, err := envelope.Decrypt(&payload, priv)
		if err != nil {
			handleError(err)
			return
		}

		if err := writeOutput(outPath, plaintext, 0o600); err != nil {
			handleError(err)
		}
	},
}

func init() {
	decryptCmd.Flags().String("key", "", "private key JWK file (required)")
	decryptCmd.Flags().String("in", "", "encrypted payload file (default: stdin)")
	decryptCmd.Flags().String("out", "", "output file (default: stdout)")
	_ = decryptCmd.MarkFlagRequired("key")
}

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
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/veilforms/veilkey/internal/password"
	"github.com/veilforms/veilkey/pkg/export"
	"github.com/veilforms/veilkey/pkg/keypair"
)

// exportCmd bundles private keys into a password-protected .veilkeys file.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export private keys to a password-protected .veilkeys file",
	Long: `Bundle one or more form private keys into a portable .veilkeys file
sealed with a password-derived key (PBKDF2-HMAC-SHA256, 100,000
iterations, AES-256-GCM). The password is prompted twice and never
stored.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := getConfig()
		printer := NewPrinter(cfg.OutputFormat, os.Stdout)

		keyFlags, _ := cmd.Flags().GetStringSlice("key")
		outPath, _ := cmd.Flags().GetString("out")

		keys := make(map[string]*keypair.KeyPair, len(keyFlags))
		for _, entry := range keyFlags {
			formID, path, ok := strings.Cut(entry, "=")
			if !ok || formID == "" || path == "" {
				handleError(fmt.Errorf("invalid --key %q, expected form-id=path", entry))
				return
			}
			priv, err := readJWKFile(path)
			if err != nil {
				handleError(err)
				return
			}
			keys[formID] = &keypair.KeyPair{
				PublicKey:  priv.Public(),
				PrivateKey: priv,
			}
		}

		secret, err := password.ReadConfirmed("Export password: ", "Confirm password: ")
		if err != nil {
			handleError(err)
			return
		}
		pw := export.NewPassword(secret)
		defer pw.Zeroize()

		env, err := export.Keys(keys, pw)
		if err != nil {
			handleError(fmt.Errorf("export failed: %w", err))
			return
		}

		data, err := env.Marshal()
		if err != nil {
			handleError(err)
			return
		}

		if err := os.WriteFile(outPath, data, 0o600); err != nil {
			handleError(fmt.Errorf("failed to write %s: %w", outPath, err))
			return
		}

		if err := printer.PrintSuccess(fmt.Sprintf("Exported %d key(s) to %s", len(keys), outPath)); err != nil {
			handleError(err)
		}
	},
}

func init() {
	exportCmd.Flags().StringSlice("key", nil, "private key as form-id=path (repeatable, required)")
	exportCmd.Flags().String("out", "keys.veilkeys", "output .veilkeys file")
	_ = exportCmd.MarkFlagRequired("key")
}

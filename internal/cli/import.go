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
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/veilforms/veilkey/internal/password"
	"github.com/veilforms/veilkey/pkg/export"
)

// importCmd restores private keys from a .veilkeys file.
var importCmd = &cobra.Command{
	Use:   "import <file.veilkeys>",
	Short: "Import private keys from a .veilkeys file",
	Long: `Unseal a .veilkeys file with its password and write each contained
private key as a JWK file named after its form ID. A wrong password
and a corrupted file are indistinguishable by design.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := getConfig()
		printer := NewPrinter(cfg.OutputFormat, os.Stdout)

		outDir, _ := cmd.Flags().GetString("out-dir")

		// #nosec G304 - file path is provided by the user
		data, err := os.ReadFile(args[0])
		if err != nil {
			handleError(fmt.Errorf("failed to read %s: %w", args[0], err))
			return
		}

		env, err := export.Unmarshal(data)
		if err != nil {
			handleError(err)
			return
		}

		secret, err := password.Read("Import password: ")
		if err != nil {
			handleError(err)
			return
		}
		pw := export.NewPassword(secret)
		defer pw.Zeroize()

		keys, err := export.Import(env, pw)
		if err != nil {
			handleError(err)
			return
		}

		for formID, kp := range keys {
			path := filepath.Join(outDir, formID+".private.jwk")
			if err := writeJWKFile(path, kp.PrivateKey, 0o600); err != nil {
				handleError(err)
				return
			}
			printVerbose("Wrote %s", path)
		}

		if err := printer.PrintSuccess(fmt.Sprintf("Imported %d key(s) into %s", len(keys), outDir)); err != nil {
			handleError(err)
		}
	},
}

func init() {
	importCmd.Flags().String("out-dir", ".", "directory to write the private key JWK files to")
}

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
	"github.com/veilforms/veilkey/pkg/encoding/jwk"
	"github.com/veilforms/veilkey/pkg/keypair"
)

// keygenCmd generates a key pair locally and writes both halves as JWK
// files. Nothing leaves the device.
var keygenCmd = &cobra.Command{
	Use:   "keygen <form-id>",
	Short: "Generate a form key pair locally",
	Long: `Generate an RSA-2048 key pair for a form and write the private and
public halves as JWK files. The private key file is created with mode
0600 and is the only copy; store it safely.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		formID := args[0]
		cfg := getConfig()
		printer := NewPrinter(cfg.OutputFormat, os.Stdout)

		outDir, _ := cmd.Flags().GetString("out-dir")

		printVerbose("Generating RSA-%d key pair for form %s", keypair.ModulusBits, formID)

		kp, err := keypair.Generate()
		if err != nil {
			handleError(fmt.Errorf("failed to generate key pair: %w", err))
			return
		}

		privatePath := filepath.Join(outDir, formID+".private.jwk")
		publicPath := filepath.Join(outDir, formID+".public.jwk")

		if err := writeJWKFile(privatePath, kp.PrivateKey, 0o600); err != nil {
			handleError(err)
			return
		}
		if err := writeJWKFile(publicPath, kp.PublicKey, 0o644); err != nil {
			handleError(err)
			return
		}

		err = printer.PrintResult(map[string]interface{}{
			"form_id":     formID,
			"kid":         kp.PublicKey.Kid,
			"private_key": privatePath,
			"public_key":  publicPath,
		},
			fmt.Sprintf("Generated key pair for form %s", formID),
			fmt.Sprintf("  kid:         %s", kp.PublicKey.Kid),
			fmt.Sprintf("  private key: %s", privatePath),
			fmt.Sprintf("  public key:  %s", publicPath),
		)
		if err != nil {
			handleError(err)
		}
	},
}

func init() {
	keygenCmd.Flags().String("out-dir", ".", "directory to write the JWK files to")
}

// writeJWKFile marshals a key and writes it with the given mode.
func writeJWKFile(path string, key *jwk.Key, mode os.FileMode) error {
	data, err := key.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode key: %w", err)
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// readJWKFile loads a JWK from disk.
func readJWKFile(path string) (*jwk.Key, error) {
	// #nosec G304 - key file path is provided by the user
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	key, err := jwk.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return key, nil
}

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
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/veilforms/veilkey/internal/rest"
)

// rotateCmd asks the server to rotate a form's keys and stores the new
// private key locally.
var rotateCmd = &cobra.Command{
	Use:   "rotate <form-id>",
	Short: "Rotate a form's keys on the server",
	Long: `Generate a new key version for a form. The server keeps every
previous public key so existing submissions stay decryptable with the
old private key; new submissions encrypt against the new version. The
new private key is written locally and exists nowhere else.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		formID := args[0]
		cfg := getConfig()
		printer := NewPrinter(cfg.OutputFormat, os.Stdout)

		userID, _ := cmd.Flags().GetString("user")
		outDir, _ := cmd.Flags().GetString("out-dir")

		body, err := json.Marshal(rest.RotateKeysRequest{UserID: userID})
		if err != nil {
			handleError(err)
			return
		}

		endpoint := fmt.Sprintf("%s/api/forms/%s/rotate", cfg.ServerURL, url.PathEscape(formID))
		printVerbose("POST %s", endpoint)

		resp, err := cfg.HTTPClient().Post(endpoint, "application/json", bytes.NewReader(body))
		if err != nil {
			handleError(fmt.Errorf("rotation request failed: %w", err))
			return
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			handleError(decodeServerError(resp))
			return
		}

		var result rest.RotateKeysResponse
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			handleError(fmt.Errorf("failed to parse rotation response: %w", err))
			return
		}

		privatePath := filepath.Join(outDir, fmt.Sprintf("%s.v%d.private.jwk", formID, result.NewVersion))
		if err := writeJWKFile(privatePath, result.PrivateKey, 0o600); err != nil {
			handleError(err)
			return
		}

		err = printer.PrintResult(map[string]interface{}{
			"form_id":          result.FormID,
			"new_version":      result.NewVersion,
			"previous_version": result.PreviousVersion,
			"private_key":      privatePath,
			"warning":          result.Warning,
		},
			fmt.Sprintf("Rotated keys for form %s", result.FormID),
			fmt.Sprintf("  new version:      %d", result.NewVersion),
			fmt.Sprintf("  previous version: %d", result.PreviousVersion),
			fmt.Sprintf("  private key:      %s", privatePath),
			fmt.Sprintf("WARNING: %s", result.Warning),
		)
		if err != nil {
			handleError(err)
		}
	},
}

func init() {
	rotateCmd.Flags().String("user", "", "acting user ID (required)")
	rotateCmd.Flags().String("out-dir", ".", "directory to write the new private key to")
	_ = rotateCmd.MarkFlagRequired("user")
}

// decodeServerError turns an error response body into an error.
func decodeServerError(resp *http.Response) error {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("server returned %s", resp.Status)
	}

	var serverErr rest.ErrorResponse
	if err := json.Unmarshal(data, &serverErr); err == nil && serverErr.Error != "" {
		return fmt.Errorf("server returned %s: %s", resp.Status, serverErr.Error)
	}
	return fmt.Errorf("server returned %s", resp.Status)
}

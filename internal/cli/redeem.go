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
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/veilforms/veilkey/internal/rest"
)

// redeemCmd follows a one-time download link and stores the private key.
var redeemCmd = &cobra.Command{
	Use:   "redeem <download-url>",
	Short: "Redeem a one-time private key download link",
	Long: `Fetch a form's private key through its one-time download link and
write it as a JWK file. The link works exactly once and expires 15
minutes after issuance; if it has already been used or has expired,
rotate the form's keys instead.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		downloadURL := args[0]
		cfg := getConfig()
		printer := NewPrinter(cfg.OutputFormat, os.Stdout)

		outDir, _ := cmd.Flags().GetString("out-dir")

		if _, err := url.ParseRequestURI(downloadURL); err != nil {
			handleError(fmt.Errorf("invalid download URL: %w", err))
			return
		}

		printVerbose("GET %s", downloadURL)

		resp, err := cfg.HTTPClient().Get(downloadURL)
		if err != nil {
			handleError(fmt.Errorf("download request failed: %w", err))
			return
		}
		defer func() { _ = resp.Body.Close() }()

		switch resp.StatusCode {
		case http.StatusOK:
		case http.StatusGone:
			handleError(fmt.Errorf("download link has expired; rotate the form's keys to get a new one"))
			return
		case http.StatusConflict:
			handleError(fmt.Errorf("download link has already been used; rotate the form's keys if you no longer have the key"))
			return
		default:
			handleError(decodeServerError(resp))
			return
		}

		var result rest.DownloadKeyResponse
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			handleError(fmt.Errorf("failed to parse download response: %w", err))
			return
		}

		privatePath := filepath.Join(outDir, result.FormID+".private.jwk")
		if err := writeJWKFile(privatePath, result.PrivateKey, 0o600); err != nil {
			handleError(err)
			return
		}

		err = printer.PrintResult(map[string]interface{}{
			"form_id":     result.FormID,
			"private_key": privatePath,
		},
			fmt.Sprintf("Downloaded private key for form %s", result.FormID),
			fmt.Sprintf("  private key: %s", privatePath),
			"This link is now used up. Keep the key file safe; it is the only copy.",
		)
		if err != nil {
			handleError(err)
		}
	},
}

func init() {
	redeemCmd.Flags().String("out-dir", ".", "directory to write the private key to")
}

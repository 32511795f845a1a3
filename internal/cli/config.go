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
	"net/http"
	"time"
)

// Config holds the CLI's global settings.
type Config struct {
	// ServerURL is the veilkey server base URL for remote commands.
	ServerURL string

	// OutputFormat selects text or json output.
	OutputFormat string

	// Verbose enables progress output on stderr.
	Verbose bool
}

// NewConfig returns the default CLI configuration.
func NewConfig() *Config {
	return &Config{
		ServerURL:    "http://localhost:8443",
		OutputFormat: "text",
	}
}

// HTTPClient returns the client used for remote commands.
func (c *Config) HTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

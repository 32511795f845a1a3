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

package main

import (
	"fmt"
	"os"

	"github.com/veilforms/veilkey/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

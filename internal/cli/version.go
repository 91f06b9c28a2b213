// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func newVersionCommand(stdio IO) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(stdio.Out, "gpterm version: %s\n", Version)
			fmt.Fprintf(stdio.Out, "  build date: %s\n", BuildDate)
			fmt.Fprintf(stdio.Out, "  git commit: %s\n", GitCommit)
			fmt.Fprintf(stdio.Out, "  go version: %s\n", runtime.Version())
		},
	}
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the docmodel release, set at build time via -ldflags.
var Version = "0.1.0"

const modulePath = "github.com/mesh-intelligence/docmodel"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "docmodel v%s\nmodule: %s\n", Version, modulePath)
		},
	}
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simonhull/crucible"
)

// VersionCmd prints the crucible version
func VersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the crucible version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "crucible version %s\n", crucible.Version)
		},
	}
}

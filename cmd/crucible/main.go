package main

import (
	"errors"
	"os"

	"github.com/simonhull/crucible/internal/commands"
	"github.com/simonhull/crucible/internal/output"
)

func main() {
	rootCmd := commands.RootCmd()

	rootCmd.AddCommand(commands.ValidateCmd())
	rootCmd.AddCommand(commands.RulesCmd())
	rootCmd.AddCommand(commands.VersionCmd())

	if err := rootCmd.Execute(); err != nil {
		// The report already explains a failed validation
		if !errors.Is(err, commands.ErrValidationFailed) {
			output.Error(err.Error())
		}
		os.Exit(1)
	}
}

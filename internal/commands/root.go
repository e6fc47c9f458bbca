package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/simonhull/crucible"
	"github.com/simonhull/crucible/internal/config"
	"github.com/simonhull/crucible/internal/logger"
	"github.com/simonhull/crucible/internal/output"
)

// ErrValidationFailed is returned by validate when the report is invalid.
// The report itself has already been printed.
var ErrValidationFailed = errors.New("validation failed")

// RootCmd creates and returns the root command for the crucible CLI
func RootCmd() *cobra.Command {
	var verbose bool
	var configPath string

	cmd := &cobra.Command{
		Use:   "crucible",
		Short: "Validate architecture models and compliance rules",
		Long: `Crucible checks a project's architecture model before any code is written.

Modules, their exports and dependencies are described in JSON or YAML.
Crucible verifies that:
• Every dependency exists and the module graph has no cycles
• Layer boundaries are respected
• Type expressions and cross-module calls resolve
• Declared dependencies match actual use
• Compliance frameworks (HIPAA, GDPR, ...) are satisfied`,
		Version:       crucible.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			output.SetVerbose(verbose)
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output for debugging")
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: crucible.yaml in the project)")

	return cmd
}

// loadConfig reads the --config file if given, else crucible.yaml from the
// project directory
func loadConfig(cmd *cobra.Command, projectPath string) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load(projectPath)
}

// newLogger builds the command logger. --verbose wins over log.level.
func newLogger(cmd *cobra.Command, cfg *config.Config, w io.Writer) (logger.Logger, error) {
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = logger.LevelDebug
	}
	l := logger.NewLogger(level, w)
	logger.SetDefault(l)
	return l, nil
}

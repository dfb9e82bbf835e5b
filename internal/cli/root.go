// Package cli implements the scenepart command-line interface.
package cli

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	scenepart "github.com/arloliu/scenepart"
	"github.com/arloliu/scenepart/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	Format     string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the scenepart CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "scenepart",
		Short: "Distributed scene partitioning and command broadcast",
		Long: `scenepart splits a scene into cost-balanced data groups, loads each group
on one rank of a process group and drives every rank from a master through a
sentinel-checked command stream.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}

			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML configuration file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error), overrides the config file")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewPlanCommand(opts))
	cmd.AddCommand(NewSessionCommand(opts))

	return cmd
}

// loadConfig reads the config file when one is given, otherwise defaults.
func (o *RootOptions) loadConfig() (*scenepart.Config, error) {
	if o.ConfigPath == "" {
		cfg := scenepart.DefaultConfig()
		return &cfg, nil
	}

	cfg, err := scenepart.LoadConfig(o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	return cfg, nil
}

func (o *RootOptions) newLogger(w io.Writer, cfg *scenepart.Config) (*logging.SlogLogger, error) {
	level := cfg.LogLevel
	if o.LogLevel != "" {
		level = o.LogLevel
	}

	logger, err := logging.NewSlogText(w, level)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid log level", err)
	}

	return logger, nil
}

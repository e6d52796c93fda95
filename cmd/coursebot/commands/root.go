// Package commands defines all Cobra CLI commands for the coursebot binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/54b3r/coursebot-go/internal/audit"
	"github.com/54b3r/coursebot-go/internal/config"
	"github.com/54b3r/coursebot-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "coursebot",
		Short: "coursebot answers questions about course materials",
		Long: `coursebot is a retrieval-augmented assistant for course materials.

Questions are answered by a language model that can search indexed course
content and look up course outlines, citing the lessons it used.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.coursebot/config.yaml).
See 'coursebot --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Env vars always override YAML values.
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			audit.LogCommandStart(cmd.Context(), log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.coursebot/config.yaml)")

	root.AddCommand(
		NewQueryCmd(),
		NewCoursesCmd(),
		NewServeCmd(),
		NewVersionCmd(),
	)

	return root
}

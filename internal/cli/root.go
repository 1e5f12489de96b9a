// Package cli implements the wrapmesh command line using cobra.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/wrapmesh/config"
	"github.com/hupe1980/wrapmesh/internal/container"
)

// globalOptions are the persistent flags shared by all commands.
type globalOptions struct {
	configFile string
	envFile    string
	logLevel   string
	noColor    bool
}

// NewRootCommand builds the wrapmesh command tree.
func NewRootCommand(version string) *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "wrapmesh",
		Short:         "Chat with a model that can load and invoke wraps",
		Long:          "wrapmesh connects a chat model to wrap modules through the InvokeWrap and LoadWrap functions.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "Path to a YAML config file")
	flags.StringVar(&opts.envFile, "env-file", ".env", "Env file loaded before the environment is read")
	flags.StringVar(&opts.logLevel, "log-level", "", "Override log.level (debug, info, warn, error)")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable coloured output")

	rootCmd.AddCommand(newChatCommand(opts))
	rootCmd.AddCommand(newInvokeCommand(opts))
	rootCmd.AddCommand(newSchemaCommand(opts))
	rootCmd.AddCommand(newVersionCommand(version))

	return rootCmd
}

// Execute runs the root command and exits on error.
func Execute(version string) {
	if err := NewRootCommand(version).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "wrapmesh %s\n", version)
		},
	}
}

// loadContainer loads the configuration and wires the services for one command.
func loadContainer(cmd *cobra.Command, opts *globalOptions) (*container.Container, error) {
	cfg, err := config.Load(opts.configFile, func(o *config.LoadOptions) {
		o.EnvFile = opts.envFile
	})
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	return container.New(cfg, func(o *container.Options) {
		o.LogOutput = cmd.ErrOrStderr()
		o.NoColor = opts.noColor
	})
}

// commandContext returns the context of cmd, or context.Background when the
// command was executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

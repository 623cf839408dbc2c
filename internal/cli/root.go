// Package cli holds the cobra commands of meridian-tutor.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/haowjy/meridian-tutor/internal/app"
	"github.com/haowjy/meridian-tutor/internal/config"
	"github.com/haowjy/meridian-tutor/internal/logging"
)

type globalFlags struct {
	configPath string
	logLevel   string
}

// NewRootCmd wires the cobra root command.
func NewRootCmd() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:   "meridian-tutor",
		Short: "Explain Python, C and JavaScript code with a language model",
		Long: "meridian-tutor streams beginner-friendly code explanations from GPT, Claude or a\n" +
			"local Llama served by Ollama, either in the browser or on the command line.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to a YAML config file (default $"+config.EnvConfigPath+")")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Override the log level (debug, info, warn, error)")

	root.AddCommand(newServeCommand(&flags))
	root.AddCommand(newExplainCommand(&flags))
	root.AddCommand(newModelsCommand(&flags))
	return root
}

// buildContainer loads configuration and constructs the dependency graph.
// mutate may adjust the loaded config before it is validated again.
func buildContainer(flags *globalFlags, mutate func(*config.Config)) (*app.Container, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if mutate != nil {
		mutate(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := logging.New(cfg.Log, os.Stderr)
	return app.BuildContainer(cfg, logger)
}

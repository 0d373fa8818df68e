package main

import (
	"github.com/spf13/cobra"

	"github.com/example/draft-agent/internal/config"
)

type globalFlags struct {
	configFile string
	envFile    string
}

func newRootCmd() *cobra.Command {
	var g globalFlags
	root := &cobra.Command{
		Use:           "draft-agent",
		Short:         "Research a contact, analyze signals and draft outreach email",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&g.configFile, "config", "", "path to a YAML config file (default ./config.yml)")
	root.PersistentFlags().StringVar(&g.envFile, "env-file", "", "path to a .env file (default ./.env)")

	root.AddCommand(newServeCmd(&g), newDraftCmd(&g))
	return root
}

func (g *globalFlags) load() (config.Config, error) {
	var opts []config.Option
	if g.configFile != "" {
		opts = append(opts, config.WithConfigFile(g.configFile))
	}
	if g.envFile != "" {
		opts = append(opts, config.WithEnvFile(g.envFile))
	}
	return config.Load(opts...)
}

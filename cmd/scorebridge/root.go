package main

import (
	"fmt"
	"os"

	"github.com/aretw0/scorebridge/internal/cli"
	"github.com/aretw0/scorebridge/internal/config"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "scorebridge.yaml"

var rootCmd = &cobra.Command{
	Use:   "scorebridge",
	Short: "Scorebridge scores SHACL UI widgets in an isolated Python worker",
	Long: `Scorebridge runs the SHACL UI widget scoring algorithm in a supervised Python
worker and keeps each playground session's stepped result, saved configurations
and bundled examples behind one HTTP, MCP or command-line front-end.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", defaultConfigPath, "Path to the YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Override the log level (debug, info, warn, error)")
}

// loadConfig resolves the configuration named by the persistent flags.
func loadConfig(cmd *cobra.Command) (config.Config, string, error) {
	path, _ := cmd.Flags().GetString("config")
	explicit := cmd.Flags().Changed("config")

	cfg, err := config.Load(path, explicit, os.Environ())
	if err != nil {
		return cfg, "", err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	if !explicit {
		if _, err := os.Stat(path); err != nil {
			path = ""
		}
	}
	return cfg, path, nil
}

// buildApp loads the configuration and wires the playground.
func buildApp(cmd *cobra.Command) (*cli.App, error) {
	cfg, path, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return cli.Build(cfg, cli.Options{ConfigPath: path})
}

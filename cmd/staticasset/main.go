package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/staticasset/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "staticasset",
	Short:   "Static asset server with conditional and range request support",
	Long: `staticasset serves a directory of static assets over HTTP with strong
entity tags, conditional requests, byte ranges and optional cache busting.
The directory can be watched so that edits are served without a restart.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFiles, _ := cmd.Flags().GetStringSlice("config")
		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		setupLogging(cfg.Log)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringSlice("config", nil, "config file paths, merged left to right (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("path", "", "asset directory (default: ./public, env: STATICASSET_ASSETS_PATH)")
	rootCmd.PersistentFlags().String("include", "", "regular expression asset paths must match (env: STATICASSET_ASSETS_INCLUDE)")
	rootCmd.PersistentFlags().Bool("hidden", false, "include hidden files (env: STATICASSET_ASSETS_HIDDEN)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (env: STATICASSET_LOG_LEVEL)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

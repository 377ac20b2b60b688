// Command mbctl is a maintenance CLI for matchbot: connectivity checks,
// config/cache access, offline decision dry-runs, and session stats.
package main

import (
	"fmt"
	"os"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"matchbot/internal/config"
)

var rootCmd = &cobra.Command{
	Use:           "mbctl",
	Short:         "Maintenance CLI for matchbot",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var openCmd = &cobra.Command{
	Use:       "open <config|cache>",
	Short:     "Open the config file or cache directory",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"config", "cache"},
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "config":
			path, err := config.ConfigPath()
			if err != nil {
				return err
			}
			fmt.Printf("Opening config: %s\n", path)
			return browser.OpenFile(path)
		case "cache":
			dir, err := config.CacheDir()
			if err != nil {
				return err
			}
			fmt.Printf("Opening cache dir: %s\n", dir)
			return browser.OpenFile(dir)
		default:
			return fmt.Errorf("unknown target %q (want config or cache)", args[0])
		}
	},
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.Default()
	}
	cfg.ApplyEnv()
	return cfg
}

func main() {
	rootCmd.AddCommand(openCmd, doctorCmd, decideCmd, statsCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

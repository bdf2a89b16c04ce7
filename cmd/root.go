package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

var (
	configPath string
	debugMode  bool
)

var rootCmd = &cobra.Command{
	Use:   "tgpilot",
	Short: "tgpilot — Telegram userbot with per-chat repeating messages and photo labels",
	Long: `tgpilot logs into a Telegram user account and obeys its owner:
repeating messages per chat (/spam, /stop_spam, /stop_all_spam),
status reports, and photo recognition against a label table.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = Version
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (.json or .yaml, default ~/.tgpilot/config.json)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Verbose development logging")
}

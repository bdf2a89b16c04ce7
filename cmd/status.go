package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dayuer/tgpilot/internal/labels"
	"github.com/dayuer/tgpilot/internal/utils"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show tgpilot status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func check(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "🤖 tgpilot Status")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Config: %s\n", resolvedConfigPath())
	if pid, ok := runningPID(); ok {
		fmt.Fprintf(out, "Process: running (pid %d)\n", pid)
	} else {
		fmt.Fprintln(out, "Process: stopped")
	}

	fmt.Fprintln(out, "\nTelegram:")
	fmt.Fprintf(out, "  API credentials: %s\n", check(cfg.Telegram.APIID > 0 && cfg.Telegram.APIHash != ""))
	switch {
	case cfg.Telegram.SessionString != "":
		fmt.Fprintln(out, "  Session: string session")
	default:
		path := cfg.Telegram.SessionFile
		if path == "" {
			path = filepath.Join(utils.GetDataPath(), "session.json")
		}
		_, statErr := os.Stat(utils.ExpandHome(path))
		fmt.Fprintf(out, "  Session file: %s %s\n", path, check(statErr == nil))
	}
	fmt.Fprintf(out, "  Owner: %d %s\n", cfg.Bot.OwnerID, check(cfg.Bot.OwnerID != 0))

	fmt.Fprintln(out, "\nLabels:")
	store, err := labels.Open(context.Background(), cfg.Labels.Path)
	if err != nil {
		fmt.Fprintf(out, "  %s: %v\n", cfg.Labels.Path, err)
	} else {
		fmt.Fprintf(out, "  %s: %d entries\n", store.Path(), store.Len())
	}
	fmt.Fprintf(out, "  Redis mirror: %s\n", check(cfg.Redis.URL != ""))
	fmt.Fprintf(out, "  Auto-process: %v (%d chats)\n", cfg.Bot.AutoProcess, len(cfg.Bot.AutoProcessChats))

	if cfg.Health.Port > 0 {
		fmt.Fprintf(out, "\nHealth: http://%s/\n", cfg.HealthAddr())
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(out, "\n⚠ %v\n", err)
	}
	return nil
}

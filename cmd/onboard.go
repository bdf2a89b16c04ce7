package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dayuer/tgpilot/internal/channels"
	"github.com/dayuer/tgpilot/internal/config"
	"github.com/dayuer/tgpilot/internal/utils"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize tgpilot configuration and log into Telegram",
	RunE:  runOnboard,
}

var onboardSkipLogin bool

func init() {
	onboardCmd.Flags().BoolVar(&onboardSkipLogin, "no-login", false, "Only write the default config")
	rootCmd.AddCommand(onboardCmd)
}

func runOnboard(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	path := resolvedConfigPath()

	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(out, "Config already exists at %s\n", path)
	} else {
		if err := config.Save(config.DefaultConfig(), path); err != nil {
			return fmt.Errorf("creating config: %w", err)
		}
		fmt.Fprintf(out, "✓ Created config at %s\n", path)
	}
	if _, err := utils.EnsureDir(utils.GetDataPath()); err != nil {
		return err
	}
	if onboardSkipLogin {
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Telegram.APIID == 0 || cfg.Telegram.APIHash == "" {
		fmt.Fprintf(out, "Set telegram.apiId and telegram.apiHash in %s (or API_ID / API_HASH), then rerun onboard.\n", path)
		return nil
	}
	if cfg.Telegram.SessionString != "" {
		fmt.Fprintln(out, "SESSION_STRING is set; no interactive login needed.")
		return nil
	}

	in := bufio.NewReader(cmd.InOrStdin())
	if cfg.Telegram.Phone == "" {
		cfg.Telegram.Phone, err = prompt(out, in, "Phone number (international format): ")
		if err != nil {
			return err
		}
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	tg := channels.NewTelegramChannel(telegramConfig(cfg), nil, logger,
		channels.WithCodePrompt(func(ctx context.Context) (string, error) {
			return prompt(out, in, "Login code: ")
		}))
	self, err := tg.Login(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Logged in as %s (id %d)\n", displayName(self.Username, self.FirstName), self.ID)
	if cfg.Bot.OwnerID == 0 {
		fmt.Fprintf(out, "  Tip: set bot.ownerId to %d to command the bot from this account.\n", self.ID)
	}
	return nil
}

func prompt(out io.Writer, in *bufio.Reader, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func displayName(username, first string) string {
	if username != "" {
		return "@" + username
	}
	return first
}

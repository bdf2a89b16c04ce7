package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dayuer/tgpilot/internal/bus"
	"github.com/dayuer/tgpilot/internal/channels"
	"github.com/dayuer/tgpilot/internal/clock"
	"github.com/dayuer/tgpilot/internal/config"
	"github.com/dayuer/tgpilot/internal/dispatcher"
	"github.com/dayuer/tgpilot/internal/health"
	"github.com/dayuer/tgpilot/internal/labels"
	"github.com/dayuer/tgpilot/internal/redis"
	"github.com/dayuer/tgpilot/internal/supervisor"
)

const shutdownTimeout = 5 * time.Second

var runCmd = &cobra.Command{
	Use:     "run",
	Aliases: []string{"gateway"},
	Short:   "Start the userbot (Telegram client + health server)",
	RunE:    runBot,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running tgpilot instance",
	RunE:  runStop,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(stopCmd)
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if pid, ok := runningPID(); ok {
		return fmt.Errorf("tgpilot already running (pid %d)", pid)
	}
	if err := writePID(os.Getpid()); err != nil {
		logger.Warn("Could not write pid file", zap.Error(err))
	}
	defer removePID()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.close(logger)

	logger.Info("Starting tgpilot",
		zap.String("version", Version),
		zap.Int64("owner_id", cfg.Bot.OwnerID),
		zap.Int("labels", app.store.Len()))
	err = app.run(ctx, cfg, logger)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	logger.Info("Shutting down",
		zap.Time("started_at", app.uptime.StartedAt()),
		zap.Duration("uptime", app.uptime.Uptime()))
	return err
}

// app holds the components built once at startup.
type app struct {
	uptime   *clock.Tracker
	store    *labels.Store
	mirror   *redis.LabelMirror
	bus      *bus.MessageBus
	telegram *channels.TelegramChannel
	channels *channels.Manager
	tasks    *supervisor.Supervisor
	dispatch *dispatcher.Dispatcher
	health   *health.Server
}

func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{uptime: clock.NewTracker(nil)}

	mirror, err := redis.Connect(ctx, redis.Config{URL: cfg.Redis.URL, Key: cfg.Redis.Key}, logger)
	if err != nil {
		logger.Warn("Redis unavailable, continuing without label mirror", zap.Error(err))
	}
	storeOpts := []labels.Option{labels.WithLogger(logger)}
	if mirror != nil {
		a.mirror = mirror
		storeOpts = append(storeOpts, labels.WithMirror(mirror))
	}
	a.store, err = labels.Open(ctx, cfg.Labels.Path, storeOpts...)
	if err != nil {
		_ = mirror.Close()
		return nil, err
	}
	if a.mirror != nil {
		logger.Info("Labels mirrored to Redis",
			zap.String("key", a.mirror.Key()),
			zap.Int("labels", a.store.Len()))
	}

	a.bus = bus.NewMessageBus()
	relay := channels.NewCodeRelay()
	var tgOpts []channels.TelegramOption
	if cfg.Health.AuthCode {
		tgOpts = append(tgOpts, channels.WithCodePrompt(relay.Prompt))
	}
	a.telegram = channels.NewTelegramChannel(telegramConfig(cfg), a.bus, logger, tgOpts...)
	a.channels = channels.NewManager(logger)
	a.channels.Register(a.telegram)

	policy, err := supervisor.ParsePolicy(cfg.Supervisor.StartPolicy)
	if err != nil {
		return nil, err
	}
	a.tasks = supervisor.New(supervisor.SenderFunc(a.telegram.SendText),
		supervisor.WithPolicy(policy),
		supervisor.WithLogger(logger),
		supervisor.WithSendTimeout(seconds(cfg.Supervisor.SendTimeout, 30)),
	)

	a.dispatch = dispatcher.New(dispatcher.Config{
		OwnerID:           cfg.Bot.OwnerID,
		TriggerBotID:      cfg.Bot.TriggerBotID,
		TriggerKeyword:    cfg.Bot.TriggerKeyword,
		MatchTemplate:     cfg.Bot.MatchTemplate,
		UnrecognizedReply: cfg.Bot.UnrecognizedReply,
	}, dispatcher.Deps{
		Tasks:       a.tasks,
		Labels:      a.store,
		Matcher:     labels.NewMatcher(a.store),
		Uptime:      a.uptime,
		AutoProcess: dispatcher.NewAutoProcess(cfg.Bot.AutoProcess, cfg.Bot.AutoProcessChats...),
		Replier:     a.channels,
		Photos:      a.telegram,
		Channels:    a.channels,
		Queue:       a.bus,
		Logger:      logger,
	})

	if cfg.Health.Port > 0 {
		var healthOpts []health.Option
		if cfg.Health.AuthCode {
			healthOpts = append(healthOpts, health.WithCodeSubmitter(relay))
		}
		a.health = health.New(cfg.HealthAddr(), logger, healthOpts...)
	}
	return a, nil
}

// run blocks until ctx is cancelled or a component fails for good.
func (a *app) run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.bus.Consume(gctx, a.dispatch.Handle)
		return nil
	})
	if a.health != nil {
		g.Go(func() error { return a.health.Run(gctx) })
	}
	g.Go(func() error {
		return runTransport(gctx, a.telegram, seconds(cfg.Telegram.ReconnectDelay, 10), logger)
	})
	return g.Wait()
}

func (a *app) close(logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.tasks.Close(ctx); err != nil {
		logger.Warn("Spam tasks did not stop in time", zap.Error(err))
	}
	a.channels.StopAll()
	if err := a.mirror.Close(); err != nil {
		logger.Warn("Closing Redis", zap.Error(err))
	}
}

// runTransport keeps ch connected, waiting a fixed delay between attempts.
// Running tasks survive reconnects; their sends fail while disconnected.
func runTransport(ctx context.Context, ch channels.Channel, delay time.Duration, logger *zap.Logger) error {
	b := backoff.WithContext(backoff.NewConstantBackOff(delay), ctx)
	op := func() error {
		err := ch.Start(ctx)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if errors.Is(err, channels.ErrNotAuthorized) {
			return backoff.Permanent(err)
		}
		if err == nil {
			err = errors.New("connection closed")
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		logger.Warn("Telegram disconnected, reconnecting",
			zap.String("channel", ch.Name()),
			zap.Error(err),
			zap.Duration("retry_in", next))
	}
	err := backoff.RetryNotify(op, b, notify)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func runStop(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	pid, ok := runningPID()
	if !ok {
		fmt.Fprintln(out, "tgpilot is not running")
		return nil
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signalling pid %d: %w", pid, err)
	}
	for i := 0; i < 50; i++ {
		if !isRunning(pid) {
			fmt.Fprintf(out, "✓ Stopped tgpilot (pid %d)\n", pid)
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("pid %d did not exit within 5s", pid)
}

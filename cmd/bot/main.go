package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/MattBortsov/homework-bot/internal/config"
	"github.com/MattBortsov/homework-bot/internal/digest"
	"github.com/MattBortsov/homework-bot/internal/metrics"
	"github.com/MattBortsov/homework-bot/internal/notify"
	"github.com/MattBortsov/homework-bot/internal/poller"
	"github.com/MattBortsov/homework-bot/internal/practicum"
	"github.com/MattBortsov/homework-bot/internal/storage"
	"github.com/MattBortsov/homework-bot/internal/transport"
	"github.com/MattBortsov/homework-bot/internal/transport/telegram"
	"github.com/MattBortsov/homework-bot/pkg/logx"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to optional settings yaml")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	boot := logx.NewConsole("info")

	creds, err := config.FromEnv()
	if err != nil {
		boot.Error("startup failed", logx.Err(err))
		os.Exit(1)
	}

	settings, err := config.LoadSettings(cfgPath)
	if err != nil {
		boot.Error("startup failed", logx.Err(err))
		os.Exit(1)
	}

	logSvc, log := logx.New(logCfg(settings))
	defer logSvc.Close()

	if err := run(ctx, cfgPath, creds, settings, logSvc, log); err != nil {
		log.Error("startup failed", logx.Err(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath string, creds config.Credentials, settings config.Settings, logSvc *logx.Service, log logx.Logger) error {
	interval, _ := settings.Interval()
	timeout, _ := settings.Timeout()

	adapter, err := telegram.New(telegram.Config{Token: creds.TelegramToken}, log.With(logx.String("svc", "telegram")))
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}

	store, err := storage.Open(storage.Config{
		Path:        settings.Storage.Path,
		BusyTimeout: settings.BusyTimeout(),
	}, log.With(logx.String("svc", "storage")))
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if store != nil {
		defer store.Close()
		log.Info("notification history enabled", logx.String("path", settings.Storage.Path))
	}

	notifier := notify.New(notify.Config{
		ChatID:     creds.ChatID,
		RatePerSec: settings.Notifier.RatePerSec,
	}, adapter, store, log.With(logx.String("svc", "notify")))

	client := practicum.NewClient(settings.Endpoint, creds.PracticumToken, timeout)

	p := poller.New(poller.Config{Interval: interval}, client, notifier, log.With(logx.String("svc", "poller")))

	dig := digest.New(settings.Digest, p, notifier, log.With(logx.String("svc", "digest")))
	if err := dig.Start(ctx); err != nil {
		return err
	}
	defer dig.Stop()

	var msrv *metrics.Server
	if settings.MetricsAddr != "" {
		msrv = metrics.NewServer(settings.MetricsAddr, log.With(logx.String("svc", "metrics")))
		msrv.Start()
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), 3*time.Second)
			_ = msrv.Stop(sctx)
			scancel()
		}()
	}

	commands := make(chan transport.Command, 16)
	if err := adapter.Start(ctx, commands); err != nil {
		return fmt.Errorf("telegram start: %w", err)
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = adapter.Stop(sctx)
		scancel()
	}()

	// Hot reload: only the log level and poll interval are live-applied.
	go config.Watch(ctx, cfgPath, log.With(logx.String("svc", "config")), func(s config.Settings) {
		logSvc.Apply(logCfg(s))
		if d, err := s.Interval(); err == nil {
			p.SetInterval(d)
		}
	})

	go serveCommands(ctx, commands, creds.ChatID, p, notifier, log)

	notifyReady(log)
	go watchdogLoop(ctx, settings.Watchdog, log)

	p.Run(ctx)
	return nil
}

func logCfg(s config.Settings) logx.Config {
	return logx.Config{
		Level:   s.Logging.Level,
		Console: s.ConsoleEnabled(),
		File: logx.FileConfig{
			Enabled: s.Logging.File.Enabled,
			Path:    s.Logging.File.Path,
		},
	}
}

// serveCommands answers /status and /check from the configured chat.
// Commands from anywhere else are ignored (single-user bot).
func serveCommands(ctx context.Context, in <-chan transport.Command, chatID int64, p *poller.Poller, notifier *notify.Service, log logx.Logger) {
	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-in:
			if !ok {
				return
			}
			if cmd.ChatID != chatID {
				log.Debug("ignoring command from foreign chat",
					logx.Int64("chat_id", cmd.ChatID), logx.String("from", cmd.FromUsername))
				continue
			}
			switch firstWord(cmd.Text) {
			case "/status":
				notifier.Notify(ctx, "status", statusText(p.Status(), time.Since(start)))
			case "/check":
				p.TriggerCheck()
			}
		}
	}
}

func statusText(s poller.Snapshot, uptime time.Duration) string {
	if s.At.IsZero() {
		return "No checks completed yet. Up " + uptime.Round(time.Second).String() + "."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Last check at %s: %s", s.At.Format(time.RFC3339), s.Outcome)
	if s.Detail != "" {
		fmt.Fprintf(&b, " (%s)", s.Detail)
	}
	fmt.Fprintf(&b, ". Watermark %d. %d checks, %d failures. Up %s.",
		s.Watermark, s.Stats.Cycles, s.Stats.Errors, uptime.Round(time.Second))
	return b.String()
}

func firstWord(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t@"); i >= 0 {
		return s[:i]
	}
	return s
}

func notifyReady(log logx.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		log.Debug("sd_notify failed", logx.Err(err))
		return
	}
	if sent {
		log.Debug("systemd notified: ready")
	}
}

// watchdogLoop pings the systemd watchdog at half the configured interval,
// when enabled both in settings and in the unit file.
func watchdogLoop(ctx context.Context, enabled bool, log logx.Logger) {
	if !enabled {
		return
	}
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return
	}
	t := time.NewTicker(interval / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		}
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"

	"digestbot/internal/bitrix"
	"digestbot/internal/config"
	"digestbot/internal/digest"
	"digestbot/internal/schedule"
	"digestbot/pkg/logx"
)

func main() {
	var (
		cfgPath string
		runNow  bool
	)
	flag.StringVar(&cfgPath, "config", "", "optional path to config yaml (env overrides it)")
	flag.BoolVar(&runNow, "now", false, "run one digest batch immediately and exit")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	boot := logx.NewConsole("info")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		boot.Error("configuration is invalid", logx.Err(err))
		os.Exit(1)
	}

	log, err := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: true,
		File:    logx.FileConfig{Enabled: cfg.Logging.File != "", Path: cfg.Logging.File},
	})
	if err != nil {
		boot.Error("logging setup failed", logx.Err(err))
		os.Exit(1)
	}
	defer log.Close()

	api, err := bitrix.New(bitrix.Config{
		BaseURL:    cfg.Bitrix.BaseURL,
		Secret:     cfg.Bitrix.Secret,
		RatePerSec: cfg.Bitrix.RatePerSec,
	}, log.With(logx.String("comp", "bitrix")))
	if err != nil {
		log.Error("portal client setup failed", logx.Err(err))
		os.Exit(1)
	}

	dispatcher := digest.NewDispatcher(api, log.With(logx.String("comp", "deliver")))
	runner := digest.NewRunner(api, dispatcher, digest.Options{
		Workers:          cfg.Digest.Workers,
		Location:         cfg.Location(),
		Window:           cfg.Window(),
		Locale:           cfg.Digest.Locale,
		ExcludeCompleted: cfg.Digest.ExcludeCompleted,
		CheckPermissions: cfg.Digest.CheckPermissions,
		TestUserID:       cfg.Digest.TestUserID,
	}, log.With(logx.String("comp", "digest")))

	if runNow {
		if _, err := runner.Run(ctx); err != nil {
			log.Error("digest run failed", logx.Err(err))
			os.Exit(1)
		}
		return
	}

	sched := schedule.New(schedule.Config{
		Spec:     cfg.Digest.Cron,
		Timezone: cfg.Digest.Timezone,
	}, log.With(logx.String("comp", "schedule")))

	if err := sched.Start(ctx, func(ctx context.Context) error {
		_, err := runner.Run(ctx)
		if errors.Is(err, digest.ErrRunInProgress) {
			// Already warned by the runner; a skipped fire is not a failure.
			return nil
		}
		return err
	}); err != nil {
		log.Error("scheduler start failed", logx.Err(err))
		os.Exit(1)
	}

	// Tell systemd we are up; a no-op outside a unit with Type=notify.
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Debug("sd_notify unavailable", logx.Err(err))
	}

	<-ctx.Done()
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	sched.Stop(context.Background())
}

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"epdweather/internal/config"
	appLog "epdweather/internal/log"
	"epdweather/internal/station"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	once       bool
	renderOnly bool
	clear      bool
}

func main() {
	appLog.Info("epdweather starting", "version", "0.1.0")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	appLog.Info("effective config",
		"city", conf.City,
		"latitude", conf.Latitude,
		"longitude", conf.Longitude,
		"refresh_cron", conf.RefreshCron,
		"language", conf.Language,
		"units", conf.Units,
		"timezone", conf.Timezone,
		"rotation", conf.Display.Rotation,
		"once", flags.once,
		"render_only", flags.renderOnly,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	st := station.New(conf, flags.renderOnly)
	defer st.Shutdown()

	if flags.clear {
		if err := st.Clear(); err != nil {
			appLog.Error("clear failed", err)
			os.Exit(1)
		}
		appLog.Info("display cleared")
		return
	}

	runUpdate(ctx, st)

	if flags.once {
		appLog.Info("single-shot cycle done, exiting")
		return
	}

	sched := cron.New()
	if _, err := sched.AddFunc(conf.RefreshCron, func() {
		runUpdate(ctx, st)
	}); err != nil {
		appLog.Error("invalid refresh schedule", err, "refresh_cron", conf.RefreshCron)
		os.Exit(1)
	}
	sched.Start()
	appLog.Info("scheduler running", "refresh_cron", conf.RefreshCron)

	<-ctx.Done()

	stopCtx := sched.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		appLog.Warn("scheduler did not drain in time")
	}
	appLog.Info("epdweather exiting")
}

func runUpdate(ctx context.Context, st *station.Station) {
	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := st.Update(fetchCtx); err != nil {
		appLog.Error("update failed", err)
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "config.yaml", "Path to config file")
	flag.BoolVar(&cfg.once, "once", false, "Run one fetch+render(+display) cycle and exit")
	flag.BoolVar(&cfg.renderOnly, "render-only", false, "Render to PNG only; do not touch display hardware")
	flag.BoolVar(&cfg.clear, "clear", false, "Clear the display and exit")

	flag.Parse()

	return cfg
}

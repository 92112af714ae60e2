package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/spacefrags/kopiahook/internal/config"
	"github.com/spacefrags/kopiahook/internal/history"
	"github.com/spacefrags/kopiahook/internal/publish"
	"github.com/spacefrags/kopiahook/internal/sensor"
	"github.com/spacefrags/kopiahook/internal/state"
	"github.com/spacefrags/kopiahook/internal/ui"
)

func main() {
	configPath := "kopiahook.yaml"
	flag.StringVar(&configPath, "config", configPath, "path to config file")
	flag.StringVar(&configPath, "c", configPath, "path to config file")
	listen := flag.String("listen", "", "override the configured listen address")
	watch := flag.Bool("watch", false, "watch a running server instead of serving")
	endpoint := flag.String("endpoint", "http://127.0.0.1:8099", "server endpoint for -watch")
	flag.Parse()

	if *watch {
		if err := ui.Run(*endpoint); err != nil {
			fmt.Fprintln(os.Stderr, "Error running watcher:", err)
			os.Exit(1)
		}
		return
	}

	logger := log.New("kopiahook")

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}
	logger.SetLevel(logLevel(cfg.Logging.Level))

	store := history.New(cfg.HistoryLimit)
	slots := sensor.Slots(store, logger)

	// Restore before wiring subscribers so the replay doesn't rewrite
	// the state file or spam the broker.
	var stateStore *state.Store
	if cfg.State.Path != "" {
		stateStore, err = state.Open(cfg.State.Path)
		if err != nil {
			logger.Fatalf("open state store: %v", err)
		}
		defer stateStore.Close()
		if err := stateStore.Restore(store); err != nil {
			logger.Fatalf("restore history: %v", err)
		}
		store.Subscribe(func() {
			if err := stateStore.Save(store.Records()); err != nil {
				logger.Errorf("persist history: %v", err)
			}
		})
	}

	if cfg.MQTT.Enabled {
		pub := publish.New(cfg.MQTT, slots, logger)
		if err := pub.Connect(); err != nil {
			logger.Fatalf("mqtt: %v", err)
		}
		defer pub.Close()
		store.Subscribe(pub.PublishAll)
	}

	app := &application{cfg: cfg, store: store, slots: slots, logger: logger}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	app.routes(e)

	go func() {
		logger.Infof("webhook registered at /api/webhook/%s (history limit %d)",
			cfg.WebhookID, cfg.HistoryLimit)
		if err := e.Start(cfg.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}

func logLevel(level string) log.Lvl {
	switch level {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	default:
		return log.INFO
	}
}

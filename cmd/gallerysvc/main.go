package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mkrupp/webgallery/internal/app"
	"github.com/mkrupp/webgallery/internal/infra/config"
	"github.com/mkrupp/webgallery/internal/infra/logging"
	"github.com/mkrupp/webgallery/internal/infra/transport/http"
)

const (
	appName = "gallery"
	svcName = "svc"
)

type Config struct {
	config.EnvConfig

	Log  logging.LoggerConfig     `envPrefix:"LOG_"`
	HTTP http.HTTPTransportConfig `envPrefix:"HTTP_"`
	App  app.Config
}

func main() {
	var (
		cfg Config

		configPrefix = strings.ToUpper(strings.Join([]string{appName, svcName}, "_"))
		loggerName   = strings.ToLower(strings.Join([]string{appName, svcName}, "."))
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.Parse(ctx, &cfg, configPrefix); err != nil {
		panic(err)
	}

	logging.Configure(ctx, cfg.Log, loggerName)

	if err := run(ctx, cfg); err != nil {
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config) (err error) {
	log := logging.GetLogger("cmd.gallerysvc")

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "error", "err", err)
		} else {
			log.InfoContext(ctx, "shutdown")
		}
	}()

	gallery, err := app.Open(ctx, cfg.App)
	if err != nil {
		return fmt.Errorf("open app: %w", err)
	}

	defer func() {
		if closeErr := gallery.Close(); closeErr != nil {
			log.ErrorContext(ctx, "close app failed", "error", closeErr)
		}
	}()

	if err := gallery.Run(ctx, cfg.HTTP); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	return nil
}

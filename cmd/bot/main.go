package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Company-Discord/economy-bot/internal/app"
	"github.com/Company-Discord/economy-bot/internal/config"
)

const startupTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	setupLogging(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	a, err := app.New(ctx, cfg)
	cancel()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to build application")
	}

	if err := a.Start(); err != nil {
		logrus.WithError(err).Fatal("Failed to start")
	}
	logrus.Info("Economy bot is running, press Ctrl+C to exit")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logrus.Info("Shutting down")
	a.Stop()
}

func setupLogging(cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.AppLogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	if cfg.AppEnv == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

package main

import (
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/pagelens/pagelens/internal/config"
	"github.com/pagelens/pagelens/internal/logging"
	"github.com/pagelens/pagelens/internal/server"
)

func main() {
	cfg := config.LoadOrDefault()

	logger := newLogger(cfg.Logging)
	defer logger.Sync()

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		logger.Info("Shutting down", zap.String("signal", sig.String()))
		if err := srv.Close(); err != nil {
			logger.Error("Error during shutdown", zap.Error(err))
		}
	case err := <-errChan:
		logger.Fatal("Server error", zap.Error(err))
	}
}

func newLogger(cfg config.LogConfig) *logging.Logger {
	if cfg.Development {
		return logging.NewDevelopment()
	}
	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Level
	logger, err := logging.New(logCfg)
	if err != nil {
		return logging.NewDefault()
	}
	return logger
}

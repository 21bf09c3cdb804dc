package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adda-Baaj/dakiya/internal/app"
	"github.com/Adda-Baaj/dakiya/internal/config"
	"github.com/Adda-Baaj/dakiya/internal/logger"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "dakiya: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.DebugObj("dakiya starting", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	newSession := func(ctx context.Context) (*app.Session, error) {
		return app.NewSession(ctx, cfg, log)
	}

	root := newRootCmd(newSession)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		if ctx.Err() != nil {
			logger.WarnObj("dakiya interrupted", "reason", ctx.Err().Error())
		} else {
			logger.ErrorObj("command failed", "error", err.Error())
		}
		return err
	}
	logger.InfoObj("dakiya finished", "args", args)
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitrise-io/go-steputils/v2/stepconf"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"

	"github.com/reelforge/go-uploadutils/config"
	"github.com/reelforge/go-uploadutils/network"
	"github.com/reelforge/go-uploadutils/resumable"
	"github.com/reelforge/go-uploadutils/scratch"
	"github.com/reelforge/go-uploadutils/search"
)

// Exit codes.
const (
	exitOK = iota
	exitFailed
	exitInvalidConfig
	exitRetryBudgetExhausted
	exitCancelled
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, env.NewRepository(), log.NewLogger())
	stop()
	os.Exit(code)
}

func run(ctx context.Context, envRepo env.Repository, logger log.Logger) int {
	cfg, err := config.New(envRepo)
	if err != nil {
		logger.Errorf("Invalid configuration: %s", err)
		return exitInvalidConfig
	}
	stepconf.Print(cfg.Inputs)
	logger.EnableDebugLog(cfg.Verbose)

	if cfg.SearchQuery != "" {
		if err := fetchClip(ctx, cfg, logger); err != nil {
			logger.Errorf("Failed to fetch stock clip: %s", err)
			return exitCode(err)
		}
	}

	result, err := upload(ctx, cfg, logger)
	if err != nil {
		logger.Errorf("Upload failed: %s", err)
		return exitCode(err)
	}

	logger.Println()
	logger.Donef("Uploaded: %s", result.ID)
	if result.Location != "" {
		logger.Printf("Location: %s", result.Location)
	}
	fmt.Println(result.ID)
	return exitOK
}

func fetchClip(ctx context.Context, cfg config.Config, logger log.Logger) error {
	cleaner, err := scratch.NewCleaner(logger, cfg.ScratchKeep...)
	if err != nil {
		return err
	}
	if err := cleaner.Clean(cfg.ScratchDir); err != nil {
		return fmt.Errorf("clean scratch directory: %w", err)
	}

	client, err := search.NewClient(cfg.Search, logger)
	if err != nil {
		return err
	}

	logger.Infof("Searching stock clip for %q...", cfg.SearchQuery)
	link, err := client.SearchVideo(ctx, cfg.SearchQuery)
	if err != nil {
		return err
	}
	if link == "" {
		return fmt.Errorf("no clip found for %q", cfg.SearchQuery)
	}

	return client.Download(ctx, link, cfg.VideoPath)
}

func upload(ctx context.Context, cfg config.Config, logger log.Logger) (*resumable.Result, error) {
	file, err := resumable.OpenFile(cfg.VideoPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Warnf("Failed to close %s: %s", cfg.VideoPath, err)
		}
	}()

	var factory resumable.TransportFactory
	switch cfg.Destination {
	case config.DestinationS3:
		factory = network.NewS3TransportFactory(cfg.S3, logger)
	default:
		factory = network.NewHTTPTransportFactory(cfg.HTTP, logger)
	}

	task := resumable.Task{
		Payload:  file,
		Metadata: cfg.Metadata,
	}
	return resumable.Upload(ctx, task, factory, cfg.Retry, logger)
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, resumable.ErrCancelled), errors.Is(err, context.Canceled):
		return exitCancelled
	case errors.Is(err, resumable.ErrRetryBudgetExhausted):
		return exitRetryBudgetExhausted
	default:
		return exitFailed
	}
}

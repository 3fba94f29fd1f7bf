package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mikey/llm-phishing-detector/internal/config"
	"github.com/mikey/llm-phishing-detector/internal/core"
	"github.com/mikey/llm-phishing-detector/internal/di"
	"github.com/mikey/llm-phishing-detector/internal/ports"
	"github.com/mikey/llm-phishing-detector/internal/trustlist"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	cfg *config.Config,
	logger *zap.Logger,
	emailFilter ports.EmailFilter,
	inferenceClient core.InferenceClient,
	verdictCache core.VerdictCache,
	trust *trustlist.List,
) error {
	defer logger.Sync()

	// Report endpoint health up front so misconfiguration shows at startup
	// rather than on the first email.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := inferenceClient.CheckModel(ctx); err != nil {
		logger.Warn("configured model is not available, verdicts will degrade to heuristics",
			zap.String("model", inferenceClient.ModelName()),
			zap.Error(err))
	} else {
		logger.Info("inference endpoint ready",
			zap.String("model", inferenceClient.ModelName()))
	}

	// Keep the trust list fresh while running.
	trustCfg := cfg.GetTrust()
	if trustCfg.Watch && trustCfg.DomainsFile != "" {
		go func() {
			if err := trust.Watch(ctx, trustCfg.DomainsFile); err != nil && ctx.Err() == nil {
				logger.Warn("trusted domains watcher stopped", zap.Error(err))
			}
		}()
	}

	// Start the filter
	if err := emailFilter.Start(); err != nil {
		logger.Fatal("Failed to start filter", zap.Error(err))
		return err
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")
	cancel()

	// Stop the filter
	if err := emailFilter.Stop(); err != nil {
		logger.Error("Failed to stop filter", zap.Error(err))
	}

	// Close the verdict cache
	if verdictCache != nil {
		if err := verdictCache.Close(); err != nil {
			logger.Error("Failed to close verdict cache", zap.Error(err))
		}
	}

	logger.Info("Shutdown complete")
	return nil
}

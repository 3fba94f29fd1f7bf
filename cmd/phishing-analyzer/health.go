package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check whether the inference endpoint can serve the configured model",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer logger.Sync()

		cfg, err := buildConfig(logger)
		if err != nil {
			return err
		}

		client, err := newFactoryClient(cfg, logger)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		status, err := client.Health(ctx)
		if err != nil {
			fmt.Printf("endpoint: UNREACHABLE\n")
			return err
		}

		fmt.Printf("endpoint: reachable\n")
		fmt.Printf("configured model: %s\n", client.ModelName())
		if len(status.Models) == 0 {
			fmt.Printf("loaded models: none\n")
			return nil
		}
		fmt.Printf("loaded models:\n")
		configured := false
		for _, m := range status.Models {
			marker := ""
			if m == client.ModelName() || hasModelPrefix(m, client.ModelName()) {
				marker = " (configured)"
				configured = true
			}
			fmt.Printf("  - %s%s\n", m, marker)
		}
		if !configured {
			fmt.Printf("WARNING: configured model is not loaded\n")
		}
		return nil
	},
}

func hasModelPrefix(loaded, configured string) bool {
	return len(loaded) > len(configured) && loaded[:len(configured)+1] == configured+":"
}

package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/allisson/pii-vault/internal/app"
	"github.com/allisson/pii-vault/internal/config"
)

// RunCleanExpired deletes lockout counters that can no longer influence a
// decision and authentication tokens past their expiration. Intended to be run
// periodically, e.g. from a cron job.
func RunCleanExpired(ctx context.Context, format string) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)
	logger := container.Logger()
	logger.Info("cleaning expired counters and tokens")

	defer closeContainer(container, logger)

	tracker, err := container.Tracker()
	if err != nil {
		return fmt.Errorf("failed to initialize lockout tracker: %w", err)
	}

	tokenRepo, err := container.TokenRepository()
	if err != nil {
		return fmt.Errorf("failed to initialize token repository: %w", err)
	}

	counters, err := tracker.PurgeExpired(ctx)
	if err != nil {
		return fmt.Errorf("failed to purge expired counters: %w", err)
	}

	tokens, err := tokenRepo.DeleteExpired(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete expired tokens: %w", err)
	}

	if format == "json" {
		outputCleanExpiredJSON(counters, tokens)
	} else {
		outputCleanExpiredText(counters, tokens)
	}

	logger.Info("cleanup completed",
		slog.Int64("counters_deleted", counters),
		slog.Int64("tokens_deleted", tokens),
	)

	return nil
}

// outputCleanExpiredText outputs the result in human-readable text format.
func outputCleanExpiredText(counters, tokens int64) {
	fmt.Printf("Deleted %d expired counter(s) and %d expired token(s)\n", counters, tokens)
}

// outputCleanExpiredJSON outputs the result in JSON format for machine consumption.
func outputCleanExpiredJSON(counters, tokens int64) {
	result := map[string]interface{}{
		"counters_deleted": counters,
		"tokens_deleted":   tokens,
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal JSON: %v\n", err)
		return
	}

	fmt.Println(string(jsonBytes))
}

package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/allisson/pii-vault/internal/app"
	"github.com/allisson/pii-vault/internal/config"
)

// RunRewrapRecords re-encrypts every record still protected by a retired root
// key version until none remain. Intended to be run after a key rotation when
// waiting for the background worker is not desirable.
func RunRewrapRecords(ctx context.Context) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)
	logger := container.Logger()
	logger.Info("starting record rewrap")

	defer closeContainer(container, logger)

	rewrapUseCase, err := container.RewrapUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize rewrap use case: %w", err)
	}

	total, err := rewrapUseCase.Drain(ctx)
	if err != nil {
		return fmt.Errorf("failed to rewrap records: %w", err)
	}

	logger.Info("record rewrap completed", slog.Int("total_rewrapped", total))
	fmt.Printf("Successfully rewrapped %d record(s)\n", total)

	return nil
}

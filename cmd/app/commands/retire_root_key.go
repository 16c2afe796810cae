package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/allisson/pii-vault/internal/app"
	"github.com/allisson/pii-vault/internal/config"
)

// RunRetireRootKey verifies that no records remain encrypted under the given
// root key version and prints instructions for removing it from the
// environment. Retirement is refused while any record still depends on the
// version, since removing the key material would make those records
// unrecoverable.
func RunRetireRootKey(ctx context.Context, version uint) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	chain, err := container.RootKeyChain()
	if err != nil {
		return fmt.Errorf("failed to load root key chain: %w", err)
	}

	if version == chain.ActiveVersion() {
		return fmt.Errorf("cannot retire the active root key version %d; rotate first", version)
	}
	if _, ok := chain.Get(version); !ok {
		return fmt.Errorf("root key version %d is not present in ROOT_KEYS", version)
	}

	recordRepo, err := container.RecordRepository()
	if err != nil {
		return fmt.Errorf("failed to initialize record repository: %w", err)
	}

	count, err := recordRepo.CountByKeyVersion(ctx, version)
	if err != nil {
		return fmt.Errorf("failed to count records by key version: %w", err)
	}
	if count > 0 {
		return fmt.Errorf(
			"cannot retire root key version %d: %d record(s) still encrypted under it; run 'rewrap-records' first",
			version, count,
		)
	}

	logger.Info("root key version is safe to retire",
		slog.Uint64("version", uint64(version)),
	)

	fmt.Printf("# Root key version %d has no remaining records and can be retired.\n", version)
	fmt.Printf("# Remove the \"%d:<key>\" entry from ROOT_KEYS and restart the application.\n", version)

	return nil
}

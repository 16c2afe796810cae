package commands

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"

	"github.com/allisson/pii-vault/internal/app"
	"github.com/allisson/pii-vault/internal/config"
	cryptoDomain "github.com/allisson/pii-vault/internal/crypto/domain"
)

// RunRotateRootKey generates a new root key version on top of the currently
// configured chain and prints the updated environment configuration. Existing
// records keep decrypting with their original version until the rewrap worker
// migrates them.
func RunRotateRootKey(ctx context.Context) error {
	cfg := config.Load()

	if cfg.KMSProvider == "" || cfg.KMSKeyURI == "" {
		return fmt.Errorf("KMS_PROVIDER and KMS_KEY_URI must be configured to rotate root keys")
	}

	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	// Validates the current ROOT_KEYS configuration before appending to it.
	chain, err := container.RootKeyChain()
	if err != nil {
		return fmt.Errorf("failed to load current root key chain: %w", err)
	}

	newVersion := uint(0)
	for _, version := range chain.Versions() {
		if version > newVersion {
			newVersion = version
		}
	}
	newVersion++

	newKey := make([]byte, 32)
	if _, err := rand.Read(newKey); err != nil {
		return fmt.Errorf("failed to generate root key: %w", err)
	}
	defer cryptoDomain.Zero(newKey)

	encodedKey, err := wrapKey(ctx, newKey, cfg.KMSKeyURI)
	if err != nil {
		return err
	}

	currentKeys := os.Getenv("ROOT_KEYS")

	fmt.Println("# Root Key Rotation")
	fmt.Println("# Update these environment variables, then restart the application")
	fmt.Println("# and run 'rewrap-records' to migrate existing records")
	fmt.Println()
	fmt.Printf("ROOT_KEYS=\"%s,%d:%s\"\n", currentKeys, newVersion, encodedKey)
	fmt.Printf("ACTIVE_ROOT_KEY_VERSION=\"%d\"\n", newVersion)

	return nil
}

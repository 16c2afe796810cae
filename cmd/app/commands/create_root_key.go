package commands

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	cryptoDomain "github.com/allisson/pii-vault/internal/crypto/domain"
	cryptoService "github.com/allisson/pii-vault/internal/crypto/service"
)

// RunCreateRootKey generates a cryptographically secure 32-byte root key for
// field encryption. Key material is zeroed from memory after encoding.
//
// KMS parameters (kmsProvider and kmsKeyURI) are required. The root key is
// encrypted with KMS before output, so plaintext key material never appears in
// the environment. For local development, use kmsProvider="localsecrets" with
// kmsKeyURI="base64key://...".
//
// Output format:
//   - ROOT_KEYS="<version>:<base64-encoded-kms-ciphertext>"
//   - ACTIVE_ROOT_KEY_VERSION="<version>"
//   - KMS_PROVIDER="<provider>"
//   - KMS_KEY_URI="<uri>"
//
// Security: Never use localsecrets provider in production. Use cloud KMS
// providers (gcpkms, awskms, azurekeyvault, hashivault).
func RunCreateRootKey(version uint, kmsProvider, kmsKeyURI string) error {
	ctx := context.Background()

	// Validate required KMS parameters
	if kmsProvider == "" || kmsKeyURI == "" {
		return fmt.Errorf(
			"--kms-provider and --kms-key-uri are required\n\nFor local development, use:\n  --kms-provider=localsecrets --kms-key-uri=\"base64key://<32-byte-base64-key>\"\n\nFor production, use cloud KMS providers:\n  --kms-provider=gcpkms --kms-key-uri=\"gcpkms://projects/.../cryptoKeys/...\"\n  --kms-provider=awskms --kms-key-uri=\"awskms:///alias/...\"\n  --kms-provider=azurekeyvault --kms-key-uri=\"azurekeyvault://...\"",
		)
	}

	if version == 0 {
		version = 1
	}

	// Generate a cryptographically secure 32-byte root key
	rootKey := make([]byte, 32)
	if _, err := rand.Read(rootKey); err != nil {
		return fmt.Errorf("failed to generate root key: %w", err)
	}
	defer cryptoDomain.Zero(rootKey)

	encodedKey, err := wrapKey(ctx, rootKey, kmsKeyURI)
	if err != nil {
		return err
	}

	fmt.Println("# Root Key Configuration")
	fmt.Println("# Copy these environment variables to your .env file or secrets manager")
	fmt.Println()
	fmt.Printf("KMS_PROVIDER=\"%s\"\n", kmsProvider)
	fmt.Printf("KMS_KEY_URI=\"%s\"\n", kmsKeyURI)
	fmt.Printf("ROOT_KEYS=\"%d:%s\"\n", version, encodedKey)
	fmt.Printf("ACTIVE_ROOT_KEY_VERSION=\"%d\"\n", version)
	fmt.Println()
	fmt.Println("# For multiple root keys (key rotation), wrap each key with the same KMS key:")
	fmt.Printf("# ROOT_KEYS=\"%d:%s,2:base64-encoded-kms-ciphertext\"\n", version, encodedKey)
	fmt.Println("# ACTIVE_ROOT_KEY_VERSION=\"2\"")

	return nil
}

// wrapKey encrypts key material through the KMS keeper and returns the
// base64-encoded ciphertext.
func wrapKey(ctx context.Context, key []byte, kmsKeyURI string) (string, error) {
	kmsService := cryptoService.NewKMSService()
	keeperInterface, err := kmsService.OpenKeeper(ctx, kmsKeyURI)
	if err != nil {
		return "", fmt.Errorf("failed to open KMS keeper: %w", err)
	}

	keeper, ok := keeperInterface.(interface {
		Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
		Close() error
	})
	if !ok {
		return "", fmt.Errorf("KMS keeper does not support encryption")
	}
	defer func() {
		if closeErr := keeper.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close KMS keeper: %v\n", closeErr)
		}
	}()

	ciphertext, err := keeper.Encrypt(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt root key with KMS: %w", err)
	}

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

package commands

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunCreateRootKey(t *testing.T) {
	t.Run("missing-kms-parameters", func(t *testing.T) {
		err := RunCreateRootKey(1, "", "")
		require.Error(t, err)
		require.Contains(t, err.Error(), "--kms-provider and --kms-key-uri are required")
	})

	t.Run("invalid-kms-key-uri", func(t *testing.T) {
		err := RunCreateRootKey(1, "localsecrets", "invalid://uri")
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to open KMS keeper")
	})

	t.Run("localsecrets", func(t *testing.T) {
		wrappingKey := base64.StdEncoding.EncodeToString(make([]byte, 32))
		err := RunCreateRootKey(1, "localsecrets", "base64key://"+wrappingKey)
		require.NoError(t, err)
	})
}

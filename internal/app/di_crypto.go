package app

import (
	"context"
	"fmt"

	cryptoDomain "github.com/allisson/pii-vault/internal/crypto/domain"
	cryptoService "github.com/allisson/pii-vault/internal/crypto/service"
)

// KMSService returns the KMS service used to unwrap root key material.
func (c *Container) KMSService() cryptoService.KMSService {
	c.kmsServiceInit.Do(func() {
		c.kmsService = cryptoService.NewKMSService()
	})
	return c.kmsService
}

// RootKeyChain returns the versioned root key chain loaded from the
// environment. When a KMS provider is configured the key entries are
// unwrapped through the KMS keeper before use.
func (c *Container) RootKeyChain() (*cryptoDomain.RootKeyChain, error) {
	var err error
	c.rootKeyChainInit.Do(func() {
		ctx := context.Background()

		var keeper cryptoDomain.KMSKeeper
		if c.config.KMSProvider != "" {
			keeper, err = c.KMSService().OpenKeeper(ctx, c.config.KMSKeyURI)
			if err != nil {
				c.initErrors["rootKeyChain"] = fmt.Errorf("failed to open kms keeper: %w", err)
				return
			}
		}

		c.rootKeyChain, err = cryptoDomain.LoadRootKeyChainFromEnv(ctx, keeper)
		if err != nil {
			c.initErrors["rootKeyChain"] = fmt.Errorf("failed to load root key chain: %w", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["rootKeyChain"]; exists {
		return nil, storedErr
	}
	return c.rootKeyChain, nil
}

// KeyDeriver returns the HKDF key deriver backed by the root key chain.
func (c *Container) KeyDeriver() (*cryptoService.KeyDeriverService, error) {
	var err error
	c.keyDeriverInit.Do(func() {
		chain, chainErr := c.RootKeyChain()
		if chainErr != nil {
			c.initErrors["keyDeriver"] = chainErr
			return
		}
		c.keyDeriver = cryptoService.NewKeyDeriver(chain)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyDeriver"]; exists {
		return nil, storedErr
	}
	return c.keyDeriver, nil
}

// AEADManager returns the AEAD cipher factory.
func (c *Container) AEADManager() cryptoService.AEADManager {
	c.aeadManagerInit.Do(func() {
		c.aeadManager = cryptoService.NewAEADManager()
	})
	return c.aeadManager
}

// FieldEncryptor returns the field encryptor configured with the write
// algorithm from configuration.
func (c *Container) FieldEncryptor() (cryptoService.FieldEncryptor, error) {
	var err error
	c.encryptorInit.Do(func() {
		deriver, deriverErr := c.KeyDeriver()
		if deriverErr != nil {
			c.initErrors["encryptor"] = deriverErr
			return
		}

		var algorithm cryptoDomain.Algorithm
		switch c.config.EncryptionAlgorithm {
		case string(cryptoDomain.AESGCM):
			algorithm = cryptoDomain.AESGCM
		case string(cryptoDomain.ChaCha20):
			algorithm = cryptoDomain.ChaCha20
		default:
			c.initErrors["encryptor"] = fmt.Errorf(
				"unsupported encryption algorithm: %s", c.config.EncryptionAlgorithm,
			)
			return
		}

		c.encryptor = cryptoService.NewFieldEncryptor(deriver, c.AEADManager(), algorithm)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["encryptor"]; exists {
		return nil, storedErr
	}
	return c.encryptor, nil
}

// BlindIndexer returns the keyed blind indexer for searchable fields.
func (c *Container) BlindIndexer() (cryptoService.BlindIndexer, error) {
	var err error
	c.indexerInit.Do(func() {
		deriver, deriverErr := c.KeyDeriver()
		if deriverErr != nil {
			c.initErrors["indexer"] = deriverErr
			return
		}
		c.indexer = cryptoService.NewBlindIndexer(deriver)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["indexer"]; exists {
		return nil, storedErr
	}
	return c.indexer, nil
}

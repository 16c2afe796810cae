package app

import (
	"fmt"

	piiRepository "github.com/allisson/pii-vault/internal/pii/repository"
	piiUseCase "github.com/allisson/pii-vault/internal/pii/usecase"
)

// RecordRepository returns the protected record repository for the configured
// database driver.
func (c *Container) RecordRepository() (piiUseCase.RecordRepository, error) {
	var err error
	c.recordRepoInit.Do(func() {
		db, dbErr := c.DB()
		if dbErr != nil {
			c.initErrors["recordRepo"] = dbErr
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.recordRepo = piiRepository.NewMySQLRecordRepository(db)
		case "postgres":
			c.recordRepo = piiRepository.NewPostgreSQLRecordRepository(db)
		default:
			c.initErrors["recordRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["recordRepo"]; exists {
		return nil, storedErr
	}
	return c.recordRepo, nil
}

// RecordUseCase returns the protected record use case.
func (c *Container) RecordUseCase() (piiUseCase.RecordUseCase, error) {
	var err error
	c.recordUseCaseInit.Do(func() {
		txManager, txErr := c.TxManager()
		if txErr != nil {
			c.initErrors["recordUseCase"] = txErr
			return
		}
		recordRepo, repoErr := c.RecordRepository()
		if repoErr != nil {
			c.initErrors["recordUseCase"] = repoErr
			return
		}
		encryptor, encErr := c.FieldEncryptor()
		if encErr != nil {
			c.initErrors["recordUseCase"] = encErr
			return
		}
		indexer, idxErr := c.BlindIndexer()
		if idxErr != nil {
			c.initErrors["recordUseCase"] = idxErr
			return
		}
		keyChain, chainErr := c.RootKeyChain()
		if chainErr != nil {
			c.initErrors["recordUseCase"] = chainErr
			return
		}

		useCase := piiUseCase.NewRecordUseCase(txManager, recordRepo, encryptor, indexer, keyChain)

		if c.config.MetricsEnabled {
			businessMetrics, metricsErr := c.BusinessMetrics()
			if metricsErr != nil {
				c.initErrors["recordUseCase"] = metricsErr
				return
			}
			useCase = piiUseCase.NewRecordUseCaseWithMetrics(useCase, businessMetrics)
		}

		c.recordUseCase = useCase
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["recordUseCase"]; exists {
		return nil, storedErr
	}
	return c.recordUseCase, nil
}

// RewrapUseCase returns the background key rotation worker.
func (c *Container) RewrapUseCase() (*piiUseCase.RewrapUseCase, error) {
	var err error
	c.rewrapUseCaseInit.Do(func() {
		txManager, txErr := c.TxManager()
		if txErr != nil {
			c.initErrors["rewrapUseCase"] = txErr
			return
		}
		recordRepo, repoErr := c.RecordRepository()
		if repoErr != nil {
			c.initErrors["rewrapUseCase"] = repoErr
			return
		}
		encryptor, encErr := c.FieldEncryptor()
		if encErr != nil {
			c.initErrors["rewrapUseCase"] = encErr
			return
		}
		indexer, idxErr := c.BlindIndexer()
		if idxErr != nil {
			c.initErrors["rewrapUseCase"] = idxErr
			return
		}
		keyChain, chainErr := c.RootKeyChain()
		if chainErr != nil {
			c.initErrors["rewrapUseCase"] = chainErr
			return
		}

		c.rewrapUseCase = piiUseCase.NewRewrapUseCase(
			piiUseCase.RewrapConfig{
				Interval:      c.config.RewrapInterval,
				BatchSize:     c.config.RewrapBatchSize,
				RecordsPerSec: c.config.RewrapRecordsPerSec,
				Workers:       c.config.RewrapWorkers,
			},
			txManager,
			recordRepo,
			encryptor,
			indexer,
			keyChain,
			c.Logger(),
		)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["rewrapUseCase"]; exists {
		return nil, storedErr
	}
	return c.rewrapUseCase, nil
}

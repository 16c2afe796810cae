package app

import (
	anonymizeUseCase "github.com/allisson/pii-vault/internal/anonymize/usecase"
)

// ErasureUseCase returns the subject erasure use case.
func (c *Container) ErasureUseCase() (anonymizeUseCase.ErasureUseCase, error) {
	var err error
	c.erasureUseCaseInit.Do(func() {
		recordRepo, repoErr := c.RecordRepository()
		if repoErr != nil {
			c.initErrors["erasureUseCase"] = repoErr
			return
		}
		encryptor, encErr := c.FieldEncryptor()
		if encErr != nil {
			c.initErrors["erasureUseCase"] = encErr
			return
		}
		tracker, trackerErr := c.Tracker()
		if trackerErr != nil {
			c.initErrors["erasureUseCase"] = trackerErr
			return
		}
		gate, gateErr := c.GateUseCase()
		if gateErr != nil {
			c.initErrors["erasureUseCase"] = gateErr
			return
		}

		useCase := anonymizeUseCase.NewErasureUseCase(
			recordRepo,
			encryptor,
			tracker,
			gate,
			c.TokenService(),
			c.Logger(),
		)

		if c.config.MetricsEnabled {
			businessMetrics, metricsErr := c.BusinessMetrics()
			if metricsErr != nil {
				c.initErrors["erasureUseCase"] = metricsErr
				return
			}
			useCase = anonymizeUseCase.NewErasureUseCaseWithMetrics(useCase, businessMetrics)
		}

		c.erasureUseCase = useCase
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["erasureUseCase"]; exists {
		return nil, storedErr
	}
	return c.erasureUseCase, nil
}

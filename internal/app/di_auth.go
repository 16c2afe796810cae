package app

import (
	"fmt"

	authRepository "github.com/allisson/pii-vault/internal/auth/repository"
	authService "github.com/allisson/pii-vault/internal/auth/service"
	authUseCase "github.com/allisson/pii-vault/internal/auth/usecase"
)

// TokenRepository returns the auth token repository for the configured
// database driver.
func (c *Container) TokenRepository() (authUseCase.TokenRepository, error) {
	var err error
	c.tokenRepoInit.Do(func() {
		db, dbErr := c.DB()
		if dbErr != nil {
			c.initErrors["tokenRepo"] = dbErr
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.tokenRepo = authRepository.NewMySQLTokenRepository(db)
		case "postgres":
			c.tokenRepo = authRepository.NewPostgreSQLTokenRepository(db)
		default:
			c.initErrors["tokenRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenRepo"]; exists {
		return nil, storedErr
	}
	return c.tokenRepo, nil
}

// TokenService returns the session token service.
func (c *Container) TokenService() authService.TokenService {
	c.tokenServiceInit.Do(func() {
		c.tokenService = authService.NewTokenService()
	})
	return c.tokenService
}

// SetCredentialVerifier injects the credential verifier used by the auth gate.
// Credential storage is owned by the embedding application, so the verifier
// must be provided before the gate use case is first accessed.
func (c *Container) SetCredentialVerifier(verifier authUseCase.CredentialVerifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.verifier = verifier
}

// GateUseCase returns the authentication gate use case.
// It fails if no credential verifier has been injected.
func (c *Container) GateUseCase() (authUseCase.GateUseCase, error) {
	var err error
	c.gateUseCaseInit.Do(func() {
		if c.verifier == nil {
			c.initErrors["gateUseCase"] = fmt.Errorf("credential verifier is not set")
			return
		}
		tokenRepo, repoErr := c.TokenRepository()
		if repoErr != nil {
			c.initErrors["gateUseCase"] = repoErr
			return
		}
		tracker, trackerErr := c.Tracker()
		if trackerErr != nil {
			c.initErrors["gateUseCase"] = trackerErr
			return
		}

		useCase := authUseCase.NewGateUseCase(
			c.config,
			tokenRepo,
			c.TokenService(),
			c.verifier,
			tracker,
			c.Logger(),
		)

		if c.config.MetricsEnabled {
			businessMetrics, metricsErr := c.BusinessMetrics()
			if metricsErr != nil {
				c.initErrors["gateUseCase"] = metricsErr
				return
			}
			useCase = authUseCase.NewGateUseCaseWithMetrics(useCase, businessMetrics)
		}

		c.gateUseCase = useCase
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["gateUseCase"]; exists {
		return nil, storedErr
	}
	return c.gateUseCase, nil
}

package app

import (
	"fmt"

	lockoutRepository "github.com/allisson/pii-vault/internal/lockout/repository"
	lockoutUseCase "github.com/allisson/pii-vault/internal/lockout/usecase"
)

// CounterRepository returns the attempt counter repository for the configured
// database driver.
func (c *Container) CounterRepository() (lockoutUseCase.CounterRepository, error) {
	var err error
	c.counterRepoInit.Do(func() {
		db, dbErr := c.DB()
		if dbErr != nil {
			c.initErrors["counterRepo"] = dbErr
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.counterRepo = lockoutRepository.NewMySQLCounterRepository(db)
		case "postgres":
			c.counterRepo = lockoutRepository.NewPostgreSQLCounterRepository(db)
		default:
			c.initErrors["counterRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["counterRepo"]; exists {
		return nil, storedErr
	}
	return c.counterRepo, nil
}

// Tracker returns the lockout tracker.
func (c *Container) Tracker() (lockoutUseCase.Tracker, error) {
	var err error
	c.trackerInit.Do(func() {
		counterRepo, repoErr := c.CounterRepository()
		if repoErr != nil {
			c.initErrors["tracker"] = repoErr
			return
		}

		tracker := lockoutUseCase.NewTracker(
			lockoutUseCase.TrackerConfig{
				MaxAttempts:     c.config.LockoutMaxAttempts,
				LockoutDuration: c.config.LockoutDuration,
				Window:          c.config.LockoutWindow,
				BackoffSchedule: c.config.LockoutBackoffSchedule,
				BackoffCap:      c.config.LockoutBackoffCap,
				StoreRetries:    c.config.LockoutStoreRetries,
			},
			counterRepo,
			c.Logger(),
		)

		if c.config.MetricsEnabled {
			businessMetrics, metricsErr := c.BusinessMetrics()
			if metricsErr != nil {
				c.initErrors["tracker"] = metricsErr
				return
			}
			tracker = lockoutUseCase.NewTrackerWithMetrics(tracker, businessMetrics)
		}

		c.tracker = tracker
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tracker"]; exists {
		return nil, storedErr
	}
	return c.tracker, nil
}

package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/pii-vault/internal/auth/domain"
	authService "github.com/allisson/pii-vault/internal/auth/service"
	"github.com/allisson/pii-vault/internal/config"
	lockoutDomain "github.com/allisson/pii-vault/internal/lockout/domain"
	lockoutUseCase "github.com/allisson/pii-vault/internal/lockout/usecase"
)

// indeterminateRetryAfter is the wait reported to callers when the lockout
// store cannot answer. The real state is unknown, so the gate denies with a
// short fixed delay instead of guessing.
const indeterminateRetryAfter = 30 * time.Second

// gateUseCase implements GateUseCase.
//
// The gate sits in front of the credential verifier. Per attempt it records
// exactly one lockout outcome: a failure increments the counters, a success
// clears them, and a throttled or errored attempt touches nothing.
type gateUseCase struct {
	config       *config.Config
	tokenRepo    TokenRepository
	tokenService authService.TokenService
	verifier     CredentialVerifier
	tracker      lockoutUseCase.Tracker
	logger       *slog.Logger
}

// NewGateUseCase creates a new GateUseCase with the provided dependencies.
func NewGateUseCase(
	cfg *config.Config,
	tokenRepo TokenRepository,
	tokenService authService.TokenService,
	verifier CredentialVerifier,
	tracker lockoutUseCase.Tracker,
	logger *slog.Logger,
) GateUseCase {
	return &gateUseCase{
		config:       cfg,
		tokenRepo:    tokenRepo,
		tokenService: tokenService,
		verifier:     verifier,
		tracker:      tracker,
		logger:       logger,
	}
}

// principals derives the lockout keys for an attempt. The account key is
// always present; the source-address key only when the caller supplied one.
func (g *gateUseCase) principals(input *authDomain.AttemptInput) []string {
	keys := []string{
		lockoutDomain.AccountPrincipal(g.tokenService.DigestAccount(input.AccountID)),
	}
	if input.SourceIP != "" {
		keys = append(keys, lockoutDomain.IPPrincipal(input.SourceIP))
	}
	return keys
}

// Attempt runs one login attempt through the gate.
func (g *gateUseCase) Attempt(
	ctx context.Context,
	input *authDomain.AttemptInput,
) (*authDomain.AttemptOutput, error) {
	principals := g.principals(input)

	// Throttle check on every principal before touching credentials. A
	// throttled attempt is rejected without recording a failure: the counter
	// tracks credential guesses, not retries against a closed gate.
	var retryAfter time.Duration
	denied := false
	for _, principal := range principals {
		decision := g.tracker.Check(ctx, principal)
		switch decision.State {
		case lockoutDomain.Denied:
			denied = true
			if decision.RetryAfter > retryAfter {
				retryAfter = decision.RetryAfter
			}
		case lockoutDomain.Indeterminate:
			denied = true
			if indeterminateRetryAfter > retryAfter {
				retryAfter = indeterminateRetryAfter
			}
		}
	}
	if denied {
		return nil, &lockoutDomain.LockedError{RetryAfter: retryAfter}
	}

	subjectID, ok, err := g.verifier.Verify(ctx, input.AccountID, input.Secret)
	if err != nil {
		// Verifier infrastructure failure. Not a guess, so no counter moves.
		return nil, err
	}

	if !ok {
		var subjectLink *uuid.UUID
		if subjectID != uuid.Nil {
			subjectLink = &subjectID
		}
		delay, recordErr := g.recordFailure(ctx, principals, subjectLink)
		if recordErr != nil {
			// Counter state unknown: deny rather than report the generic
			// credential error, which would invite an immediate retry.
			return nil, &lockoutDomain.LockedError{RetryAfter: indeterminateRetryAfter}
		}
		if g.logger != nil {
			g.logger.Info("login attempt failed",
				slog.String("account_digest", g.tokenService.DigestAccount(input.AccountID)),
				slog.Duration("retry_after", delay),
			)
		}
		return nil, authDomain.ErrInvalidCredentials
	}

	for _, principal := range principals {
		if err := g.tracker.RecordSuccess(ctx, principal); err != nil && g.logger != nil {
			// Login still succeeds; a leftover counter only means a stale
			// backoff on the next failure.
			g.logger.Warn("failed to clear attempt counter",
				slog.String("principal_key", principal),
				slog.Any("error", err),
			)
		}
	}

	return g.issueToken(ctx, subjectID)
}

// recordFailure increments every principal's counter and returns the longest
// resulting delay. The subject link is stamped on the account counter only.
func (g *gateUseCase) recordFailure(
	ctx context.Context,
	principals []string,
	subjectID *uuid.UUID,
) (time.Duration, error) {
	var delay time.Duration
	for i, principal := range principals {
		var link *uuid.UUID
		if i == 0 {
			link = subjectID
		}
		d, err := g.tracker.RecordFailure(ctx, principal, link)
		if err != nil {
			return 0, err
		}
		if d > delay {
			delay = d
		}
	}
	return delay, nil
}

// issueToken creates and persists a session token for the subject.
func (g *gateUseCase) issueToken(
	ctx context.Context,
	subjectID uuid.UUID,
) (*authDomain.AttemptOutput, error) {
	plainToken, tokenHash, err := g.tokenService.GenerateToken()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	token := &authDomain.Token{
		ID:        uuid.Must(uuid.NewV7()),
		TokenHash: tokenHash,
		SubjectID: subjectID,
		ExpiresAt: now.Add(g.config.AuthTokenExpiration),
		CreatedAt: now,
	}
	if err := g.tokenRepo.Create(ctx, token); err != nil {
		return nil, err
	}

	return &authDomain.AttemptOutput{
		SubjectID:  subjectID,
		PlainToken: plainToken,
		ExpiresAt:  token.ExpiresAt,
	}, nil
}

// Authenticate validates a plain session token and returns its subject.
func (g *gateUseCase) Authenticate(ctx context.Context, plainToken string) (uuid.UUID, error) {
	token, err := g.tokenRepo.GetByHash(ctx, g.tokenService.HashToken(plainToken))
	if err != nil {
		return uuid.Nil, err
	}

	now := time.Now().UTC()
	if token.IsRevoked() {
		return uuid.Nil, authDomain.ErrTokenRevoked
	}
	if token.IsExpired(now) {
		return uuid.Nil, authDomain.ErrTokenExpired
	}
	return token.SubjectID, nil
}

// Revoke invalidates a single session token.
func (g *gateUseCase) Revoke(ctx context.Context, plainToken string) error {
	token, err := g.tokenRepo.GetByHash(ctx, g.tokenService.HashToken(plainToken))
	if err != nil {
		return err
	}
	return g.tokenRepo.Revoke(ctx, token.ID, time.Now().UTC())
}

// RevokeSubject deletes every session token for a data subject.
func (g *gateUseCase) RevokeSubject(ctx context.Context, subjectID uuid.UUID) (int64, error) {
	return g.tokenRepo.DeleteBySubject(ctx, subjectID)
}

// Package usecase implements business logic orchestration for subject authentication.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/pii-vault/internal/auth/domain"
)

// TokenRepository defines the persistence contract for session tokens.
type TokenRepository interface {
	Create(ctx context.Context, token *authDomain.Token) error
	GetByHash(ctx context.Context, tokenHash string) (*authDomain.Token, error)
	Revoke(ctx context.Context, tokenID uuid.UUID, now time.Time) error
	DeleteBySubject(ctx context.Context, subjectID uuid.UUID) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// CredentialVerifier checks an account's credentials. Implementations own the
// secret comparison; the gate only cares whether the attempt succeeded and
// which data subject it belongs to.
type CredentialVerifier interface {
	// Verify returns true when the credentials match. The subject ID is
	// returned whenever the account exists, even on a wrong secret, so
	// failure counters can be linked to their data subject; it is uuid.Nil
	// for unknown accounts. Callers must not expose which case occurred.
	Verify(ctx context.Context, accountID, secret string) (uuid.UUID, bool, error)
}

// GateUseCase defines the login gate contract.
type GateUseCase interface {
	// Attempt runs one login attempt through lockout checks, credential
	// verification, and token issuance. Returns *domain.LockedError when the
	// principal is throttled and ErrInvalidCredentials when verification
	// fails.
	Attempt(ctx context.Context, input *authDomain.AttemptInput) (*authDomain.AttemptOutput, error)

	// Authenticate validates a plain session token and returns the subject
	// it belongs to.
	Authenticate(ctx context.Context, plainToken string) (uuid.UUID, error)

	// Revoke invalidates a single session token.
	Revoke(ctx context.Context, plainToken string) error

	// RevokeSubject deletes every session token for a data subject.
	RevokeSubject(ctx context.Context, subjectID uuid.UUID) (int64, error)
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Token is a subject session token. Only the SHA-256 hash is stored; the
// plain token is returned once at issuance and never persisted.
type Token struct {
	ID        uuid.UUID
	TokenHash string
	SubjectID uuid.UUID
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// IsExpired reports whether the token has passed its expiration.
func (t *Token) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IsRevoked reports whether the token has been revoked.
func (t *Token) IsRevoked() bool {
	return t.RevokedAt != nil
}

// AttemptInput carries one login attempt through the gate. AccountID is the
// caller-supplied account identifier, typically an email address; it is
// digested before it ever reaches a counter row or a log line.
type AttemptInput struct {
	AccountID string
	Secret    string
	SourceIP  string
}

// AttemptOutput is the result of a successful login attempt.
type AttemptOutput struct {
	SubjectID  uuid.UUID
	PlainToken string
	ExpiresAt  time.Time
}

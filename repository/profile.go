package repository

import (
	"context"

	"github.com/dealerdesk/backend/domain"
)

// ProfileRepository is the remote profile lookup. GetByUserID must return
// domain.ErrProfileNotFound for a missing row so callers can tell "no
// profile" apart from a transport failure.
type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID string) (*domain.Profile, error)
	Upsert(ctx context.Context, profile *domain.Profile) error
}

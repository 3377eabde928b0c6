package identity

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/foodshare/internal/client/models"
	"github.com/dmitrijs2005/foodshare/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/foodshare/internal/cryptox"
)

// StoredSession is what survives a restart. ID tokens are short-lived and
// are not kept.
type StoredSession struct {
	Provider     string           `json:"provider"`
	RefreshToken string           `json:"refresh_token"`
	Principal    models.Principal `json:"principal"`
}

// SessionStore persists the current session between runs.
type SessionStore interface {
	// Load returns nil, nil when nothing is stored.
	Load(ctx context.Context) (*StoredSession, error)
	Save(ctx context.Context, s StoredSession) error
	Clear(ctx context.Context) error
}

// SealedStore keeps the session in the metadata repository encrypted with
// AES-GCM under a per-install key.
type SealedStore struct {
	repo metadata.Repository
	key  []byte
}

func NewSealedStore(repo metadata.Repository, key []byte) *SealedStore {
	return &SealedStore{repo: repo, key: key}
}

func (s *SealedStore) Load(ctx context.Context) (*StoredSession, error) {
	sealed, err := s.repo.Get(ctx, metadata.SessionKey)
	if err != nil {
		return nil, err
	}
	if sealed == nil {
		return nil, nil
	}
	var st StoredSession
	if err := cryptox.OpenJSON(s.key, sealed, &st); err != nil {
		return nil, fmt.Errorf("open stored session: %w", err)
	}
	return &st, nil
}

func (s *SealedStore) Save(ctx context.Context, st StoredSession) error {
	sealed, err := cryptox.SealJSON(s.key, st)
	if err != nil {
		return fmt.Errorf("seal session: %w", err)
	}
	return s.repo.Set(ctx, metadata.SessionKey, sealed)
}

func (s *SealedStore) Clear(ctx context.Context) error {
	return s.repo.Delete(ctx, metadata.SessionKey)
}

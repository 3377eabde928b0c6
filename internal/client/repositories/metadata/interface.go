// Package metadata is the client's local key/value store. It keeps small
// per-install facts such as the sealed identity session and the last
// location each user visited.
package metadata

import (
	"context"

	"github.com/dmitrijs2005/foodshare/internal/client/models"
)

const (
	// SessionKey holds the sealed identity session.
	SessionKey = "identity_session"

	lastVisitedPrefix = "last_visited:"
)

// LastVisitedKey is the key under which email's last location is kept.
func LastVisitedKey(email string) string {
	return lastVisitedPrefix + models.NormalizeEmail(email)
}

type Repository interface {
	// Get returns nil, nil when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// List returns every pair whose key starts with prefix.
	List(ctx context.Context, prefix string) (map[string][]byte, error)
	Clear(ctx context.Context) error
}

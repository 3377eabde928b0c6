package services

import (
	"strings"

	"github.com/dmitrijs2005/foodshare/internal/client/cache"
	"github.com/dmitrijs2005/foodshare/internal/client/models"
	"github.com/google/uuid"
)

// localIDPrefix marks records that exist only locally until the server
// confirms them.
const localIDPrefix = "local-"

func newLocalID() string {
	return localIDPrefix + uuid.NewString()
}

// IsLocalID reports whether id was assigned locally and is not yet known
// to the server.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, localIDPrefix)
}

// views are the local projections shared by the services.
type views struct {
	catalog  *cache.Collection[models.Listing]
	owned    *cache.Collection[models.Listing]
	requests *cache.Collection[models.FoodRequest]
}

func newViews() *views {
	listingKey := func(l models.Listing) string { return l.ID }
	return &views{
		catalog:  cache.New(listingKey),
		owned:    cache.New(listingKey),
		requests: cache.New(func(r models.FoodRequest) string { return r.ID }),
	}
}

// chain runs rollbacks in reverse order.
func chain(fns ...func()) func() {
	return func() {
		for i := len(fns) - 1; i >= 0; i-- {
			if fns[i] != nil {
				fns[i]()
			}
		}
	}
}

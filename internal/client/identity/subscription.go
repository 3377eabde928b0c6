package identity

import (
	"github.com/dmitrijs2005/foodshare/internal/client/models"
	"github.com/dmitrijs2005/foodshare/internal/pubsub"
)

// Subscription delivers principal changes on C, oldest first. A nil value
// means signed out. C is closed after Close.
type Subscription = pubsub.Subscription[*models.Principal]

package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vberezan/multitier/internal/site"
	"github.com/vberezan/multitier/internal/util"
)

// StoreCheck probes the site store by listing it under a timeout. An
// open circuit breaker reports degraded rather than unhealthy: tenant
// lookups fail fast but already-resolved traffic keeps flowing.
func StoreCheck(store site.Store, timeout time.Duration) CheckFunc {
	return func(ctx context.Context) Check {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		sites, err := store.List(ctx)
		if err != nil {
			if errors.Is(err, util.ErrStoreUnavailable) {
				return Check{Status: StatusDegraded, Message: err.Error()}
			}
			return Check{Status: StatusUnhealthy, Message: err.Error()}
		}
		return Check{
			Status:  StatusHealthy,
			Message: fmt.Sprintf("%d sites in %s store", len(sites), store.Name()),
		}
	}
}

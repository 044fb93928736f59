package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/eventhub-backend/pkg/redis"
	"github.com/google/uuid"
)

const reconcileLockScope = "checkout:reconcile:"

// ErrReconcileInProgress is returned while another caller holds the session lock.
var ErrReconcileInProgress = errors.New("reconciliation in progress")

// ReconcileGuard serializes success and refund handling per checkout session.
type ReconcileGuard struct {
	locker redis.Locker
	ttl    time.Duration
}

func NewReconcileGuard(locker redis.Locker, ttl time.Duration) (*ReconcileGuard, error) {
	if locker == nil {
		return nil, errors.New("locker is required")
	}
	if ttl <= 0 {
		return nil, errors.New("lock ttl must be positive")
	}
	return &ReconcileGuard{locker: locker, ttl: ttl}, nil
}

// Acquire takes the lock for sessionID. The returned func releases it and is
// safe to defer.
func (g *ReconcileGuard) Acquire(ctx context.Context, sessionID string) (func(), error) {
	name := reconcileLockScope + sessionID
	token := uuid.NewString()
	ok, err := g.locker.AcquireLock(ctx, name, token, g.ttl)
	if err != nil {
		return nil, fmt.Errorf("acquire reconcile lock: %w", err)
	}
	if !ok {
		return nil, ErrReconcileInProgress
	}
	return func() {
		_ = g.locker.ReleaseLock(context.WithoutCancel(ctx), name, token)
	}, nil
}

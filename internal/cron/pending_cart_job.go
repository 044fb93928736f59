package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/eventhub-backend/internal/cart"
	"github.com/angelmondragon/eventhub-backend/internal/checkout"
	"github.com/angelmondragon/eventhub-backend/pkg/logger"
	"go.uber.org/multierr"
)

const (
	PendingCartReleaseJobName = "pending_cart_release"

	defaultPendingCartBatch      = 100
	defaultPendingCartMaxBatches = 20
)

type staleCartReleaser interface {
	ReleaseStalePending(ctx context.Context, checkedOutBefore time.Time, after *cart.StaleCursor, limit int) (*checkout.StaleSweep, error)
}

type PendingCartReleaseJobParams struct {
	Logger     *logger.Logger
	Checkout   staleCartReleaser
	PendingTTL time.Duration
	BatchSize  int
}

// NewPendingCartReleaseJob settles carts stuck in pending payment longer
// than PendingTTL.
func NewPendingCartReleaseJob(params PendingCartReleaseJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Checkout == nil {
		return nil, fmt.Errorf("checkout service required")
	}
	if params.PendingTTL <= 0 {
		return nil, fmt.Errorf("pending cart ttl must be positive")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultPendingCartBatch
	}
	return &pendingCartReleaseJob{
		logg:       params.Logger,
		checkout:   params.Checkout,
		ttl:        params.PendingTTL,
		batch:      batch,
		maxBatches: defaultPendingCartMaxBatches,
		now:        time.Now,
	}, nil
}

type pendingCartReleaseJob struct {
	logg       *logger.Logger
	checkout   staleCartReleaser
	ttl        time.Duration
	batch      int
	maxBatches int
	now        func() time.Time
}

func (j *pendingCartReleaseJob) Name() string { return PendingCartReleaseJobName }

func (j *pendingCartReleaseJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	var (
		errs  error
		total int
		after *cart.StaleCursor
	)
	for i := 0; i < j.maxBatches; i++ {
		sweep, err := j.checkout.ReleaseStalePending(ctx, cutoff, after, j.batch)
		if err != nil {
			errs = multierr.Append(errs, err)
		}
		if sweep == nil {
			break
		}
		total += sweep.Settled
		if sweep.Scanned < j.batch || sweep.Next == nil {
			break
		}
		after = sweep.Next
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":        cutoff,
		"carts_settled": total,
	})
	j.logg.Info(logCtx, "pending cart release complete")
	return errs
}

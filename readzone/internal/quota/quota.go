package quota

import (
	"context"
	"math"
	"time"
	_ "time/tzdata"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/zerodice0/readzone/readzone/internal/errs"
	"github.com/zerodice0/readzone/readzone/internal/model"
)

const dayLayout = "2006-01-02"

// Store keeps one counter per calendar day. Both methods must be atomic at the storage layer.
type Store interface {
	// Increment adds one call unless the day already reached limit; ok=false means it did not count.
	Increment(ctx context.Context, day string, limit int) (used int, ok bool, err error)
	// Used returns the day's counter, creating it idempotently.
	Used(ctx context.Context, day string, limit int) (int, error)
}

type Config struct {
	DailyLimit   int
	WarningRatio float64
	Timezone     string
}

type Tracker struct {
	store        Store
	limit        int
	warningRatio float64
	loc          *time.Location
	now          func() time.Time
	log          *zap.Logger
}

func NewTracker(store Store, cfg Config, log *zap.Logger) (*Tracker, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "load timezone %q", cfg.Timezone)
	}
	if cfg.DailyLimit < 0 {
		return nil, errors.Errorf("negative daily limit %d", cfg.DailyLimit)
	}
	return &Tracker{
		store:        store,
		limit:        cfg.DailyLimit,
		warningRatio: cfg.WarningRatio,
		loc:          loc,
		now:          time.Now,
		log:          log.Named("quota"),
	}, nil
}

func (t *Tracker) today() (string, time.Time) {
	now := t.now().In(t.loc)
	y, m, d := now.Date()
	reset := time.Date(y, m, d+1, 0, 0, 0, 0, t.loc)
	return now.Format(dayLayout), reset
}

// RecordUsage reserves one external call for today or fails with QUOTA_EXCEEDED.
func (t *Tracker) RecordUsage(ctx context.Context) error {
	day, _ := t.today()
	if t.limit == 0 {
		return errs.New(errs.QuotaExceeded, "daily external search quota exhausted")
	}
	used, ok, err := t.store.Increment(ctx, day, t.limit)
	if err != nil {
		return errs.Wrap(err, errs.UnknownError, "record api usage")
	}
	if !ok {
		t.log.Warn("quota exhausted", zap.String("day", day), zap.Int("limit", t.limit))
		return errs.New(errs.QuotaExceeded, "daily external search quota exhausted").
			WithDetails(map[string]any{"limit": t.limit, "date": day})
	}
	if used == t.WarningThreshold() {
		t.log.Warn("quota warning threshold reached", zap.String("day", day), zap.Int("used", used))
	}
	return nil
}

func (t *Tracker) RemainingQuota(ctx context.Context) (int, error) {
	u, err := t.Usage(ctx)
	if err != nil {
		return 0, err
	}
	return u.Remaining, nil
}

func (t *Tracker) WarningThreshold() int {
	return int(math.Ceil(float64(t.limit) * t.warningRatio))
}

func (t *Tracker) Usage(ctx context.Context) (model.Usage, error) {
	day, reset := t.today()
	used, err := t.store.Used(ctx, day, t.limit)
	if err != nil {
		return model.Usage{}, errs.Wrap(err, errs.UnknownError, "read api usage")
	}
	threshold := t.WarningThreshold()
	return model.Usage{
		Date:             day,
		Used:             used,
		Limit:            t.limit,
		Remaining:        max(0, t.limit-used),
		WarningThreshold: threshold,
		IsWarning:        used >= threshold,
		ResetAt:          reset,
	}, nil
}

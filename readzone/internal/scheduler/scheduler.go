package scheduler

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/zerodice0/readzone/readzone/internal/model"
)

const jobTimeout = 10 * time.Second

type Sweeper interface {
	Sweep() int
}

type UsageReporter interface {
	Usage(ctx context.Context) (model.Usage, error)
}

// Scheduler runs the periodic maintenance jobs.
type Scheduler struct {
	cron *cron.Cron
	log  *zap.Logger
}

func New(log *zap.Logger) *Scheduler {
	log = log.Named("scheduler")
	logger := cronLogger{log: log.Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		log: log,
	}
}

// AddSweep evicts expired in-memory cache entries on spec.
func (s *Scheduler) AddSweep(spec string, sweeper Sweeper) error {
	if _, err := s.cron.AddFunc(spec, sweepJob(sweeper, s.log)); err != nil {
		return errors.Wrapf(err, "schedule cache sweep %q", spec)
	}
	return nil
}

// AddQuotaWarning logs a warning while today's provider usage is past the warning threshold.
func (s *Scheduler) AddQuotaWarning(spec string, reporter UsageReporter) error {
	if _, err := s.cron.AddFunc(spec, quotaWarningJob(reporter, s.log)); err != nil {
		return errors.Wrapf(err, "schedule quota warning %q", spec)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("scheduler stop", zap.Error(ctx.Err()))
	}
}

func sweepJob(sweeper Sweeper, log *zap.Logger) func() {
	return func() {
		if n := sweeper.Sweep(); n > 0 {
			log.Debug("cache sweep", zap.Int("evicted", n))
		}
	}
}

func quotaWarningJob(reporter UsageReporter, log *zap.Logger) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		usage, err := reporter.Usage(ctx)
		if err != nil {
			log.Error("quota usage", zap.Error(err))
			return
		}
		if !usage.IsWarning {
			return
		}
		log.Warn("external search quota is running low",
			zap.String("date", usage.Date),
			zap.Int("used", usage.Used),
			zap.Int("limit", usage.Limit),
			zap.Int("remaining", usage.Remaining),
			zap.Time("resetAt", usage.ResetAt),
		)
	}
}

type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}

package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"qrbook.backend/internal/usecases"
	"qrbook.backend/pkg/logger"
)

// DefaultSweepSchedule runs the expiry sweep hourly.
const DefaultSweepSchedule = "@every 1h"

var (
	cardsSweptTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qrbook_cards_swept_total",
		Help: "Expired unpaid cards deleted by the sweep",
	})
	cardSweepFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qrbook_card_sweep_failures_total",
		Help: "Cards the sweep failed to delete plus sweeps that aborted",
	})
)

// CardSweeper deletes expired unpaid cards
type CardSweeper interface {
	SweepExpiredUnpaid(ctx context.Context) (*usecases.SweepResult, error)
}

// CardExpiryJob runs the expiry sweep on a cron schedule
type CardExpiryJob struct {
	sweeper  CardSweeper
	schedule string
	timeout  time.Duration

	mu   sync.Mutex
	cron *cron.Cron
}

func NewCardExpiryJob(sweeper CardSweeper, schedule string) *CardExpiryJob {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	return &CardExpiryJob{
		sweeper:  sweeper,
		schedule: schedule,
		timeout:  5 * time.Minute,
	}
}

// Start schedules the sweep. Runs never overlap; the schedule stops when
// ctx is done or Stop is called.
func (j *CardExpiryJob) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cron != nil {
		return errors.New("card expiry job already started")
	}

	cl := cronLogger{}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	if _, err := c.AddFunc(j.schedule, func() { j.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", j.schedule, err)
	}
	c.Start()
	j.cron = c

	logger.Info(ctx, "Card expiry job started", zap.String("schedule", j.schedule))
	go func() {
		<-ctx.Done()
		j.Stop()
	}()
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (j *CardExpiryJob) Stop() {
	j.mu.Lock()
	c := j.cron
	j.cron = nil
	j.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	logger.Info(context.Background(), "Card expiry job stopped")
}

// RunOnce performs a single sweep. Failures are logged, never returned.
func (j *CardExpiryJob) RunOnce(ctx context.Context) *usecases.SweepResult {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	result, err := j.sweeper.SweepExpiredUnpaid(ctx)
	if result != nil {
		cardsSweptTotal.Add(float64(result.Deleted))
		cardSweepFailuresTotal.Add(float64(result.Failed))
	}
	if err != nil {
		cardSweepFailuresTotal.Inc()
		logger.Error(ctx, "Card expiry sweep failed", zap.Error(err))
	}
	return result
}

// cronLogger routes cron's own messages through zap.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.GetLogger().Sugar().Debugw("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.GetLogger().Sugar().Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}

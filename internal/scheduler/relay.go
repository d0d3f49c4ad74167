// Package scheduler wires up the cron job that re-publishes match events whose
// inline notification failed.
//
// Delivery is at-least-once: a match published inline but not yet marked can
// be published again by a concurrent pass.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"jobmate/swipe-service/internal/logger"
	"jobmate/swipe-service/internal/model"
)

// Outbox lists and acknowledges un-notified matches.
type Outbox interface {
	PendingMatches(ctx context.Context, limit int) ([]model.MatchRecord, error)
	MarkNotified(ctx context.Context, matchID string) error
}

// Publisher delivers a match event.
type Publisher interface {
	PublishMatch(ctx context.Context, rec model.MatchRecord) error
}

// Relay wraps robfig/cron and manages the relay loop.
type Relay struct {
	cron      *cron.Cron
	outbox    Outbox
	publisher Publisher
	spec      string // cron spec, e.g. "@every 5m"
	batch     int
	logger    *zap.Logger
	extra     []job
}

type job struct {
	name string
	spec string
	run  func(context.Context)
}

// New creates a Relay firing on spec and draining batch matches per query.
func New(outbox Outbox, publisher Publisher, spec string, batch int, log *zap.Logger) *Relay {
	l := logger.Component(log, "relay")
	cl := cronLogger{l.Sugar()}
	return &Relay{
		cron:      cron.New(cron.WithLogger(cl), cron.WithChain(cron.SkipIfStillRunning(cl))),
		outbox:    outbox,
		publisher: publisher,
		spec:      spec,
		batch:     batch,
		logger:    l,
	}
}

// AddJob schedules run on spec alongside the relay, sharing its cron and
// overlap policy. Call before Start.
func (r *Relay) AddJob(name, spec string, run func(context.Context)) {
	r.extra = append(r.extra, job{name: name, spec: spec, run: run})
}

// Start registers the jobs and starts the scheduler. Also runs one pass
// immediately so matches left over from a previous run go out without waiting
// for the first tick.
func (r *Relay) Start(ctx context.Context) error {
	_, err := r.cron.AddFunc(r.spec, func() {
		r.run(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	for _, j := range r.extra {
		j := j
		if _, err := r.cron.AddFunc(j.spec, func() { j.run(ctx) }); err != nil {
			return fmt.Errorf("cron.AddFunc %s: %w", j.name, err)
		}
		r.logger.Debug("job scheduled", zap.String("job", j.name), zap.String("spec", j.spec))
	}

	r.cron.Start()
	r.logger.Info("relay started", zap.String("spec", r.spec), zap.Int("batch", r.batch))

	go r.run(ctx)

	return nil
}

// Stop halts the scheduler and waits for a running pass to finish.
func (r *Relay) Stop() {
	<-r.cron.Stop().Done()
	r.logger.Info("relay stopped")
}

func (r *Relay) run(ctx context.Context) {
	n, err := r.RunOnce(ctx)
	if err != nil {
		r.logger.Warn("relay pass aborted", zap.Int("published", n), zap.Error(err))
		return
	}
	if n > 0 {
		r.logger.Info("relay pass complete", zap.Int("published", n))
	}
}

// RunOnce publishes pending matches in batches until none remain. It stops at
// the first failure and reports how many were published before it.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	published := 0
	for {
		if err := ctx.Err(); err != nil {
			return published, err
		}

		pending, err := r.outbox.PendingMatches(ctx, r.batch)
		if err != nil {
			return published, err
		}

		for _, rec := range pending {
			if err := r.publisher.PublishMatch(ctx, rec); err != nil {
				return published, fmt.Errorf("publish match %s: %w", rec.ID, err)
			}
			if err := r.outbox.MarkNotified(ctx, rec.ID); err != nil {
				return published, fmt.Errorf("mark match %s: %w", rec.ID, err)
			}
			published++
		}

		if len(pending) < r.batch {
			return published, nil
		}
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}

// Package scheduler reloads the job snapshot on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/job-insights/internal/logging"
)

// ReloadFunc refreshes the snapshot
type ReloadFunc func(ctx context.Context) error

// parser accepts standard five-field specs and descriptors such as "@every 5m"
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Refresher runs a ReloadFunc on a cron schedule. Runs never overlap and a
// failed run leaves the previous snapshot in place.
type Refresher struct {
	cron     *cron.Cron
	entry    cron.EntryID
	spec     string
	reload   ReloadFunc
	timeout  time.Duration
	logger   *logging.Logger
	runs     atomic.Int64
	failures atomic.Int64
}

// NewRefresher validates spec and prepares a refresher. Each run is bounded by timeout.
func NewRefresher(spec string, timeout time.Duration, reload ReloadFunc) (*Refresher, error) {
	if _, err := parser.Parse(spec); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}

	logger := logging.WithField("component", "refresher")
	r := &Refresher{
		spec:    spec,
		reload:  reload,
		timeout: timeout,
		logger:  logger,
	}

	r.cron = cron.New(
		cron.WithParser(parser),
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger})),
		cron.WithLogger(cronLogger{logger}),
	)

	entry, err := r.cron.AddFunc(spec, func() { r.RunOnce(context.Background()) })
	if err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	r.entry = entry
	return r, nil
}

// Start begins running on schedule in the background
func (r *Refresher) Start() {
	r.cron.Start()
	r.logger.WithFields(map[string]interface{}{
		"schedule": r.spec,
		"nextRun":  r.NextRun().Format(time.RFC3339),
	}).Info("Snapshot refresher started")
}

// Stop halts the schedule. The returned context is done once a running reload finishes.
func (r *Refresher) Stop() context.Context {
	return r.cron.Stop()
}

// NextRun returns the next scheduled run, zero before Start
func (r *Refresher) NextRun() time.Time {
	return r.cron.Entry(r.entry).Next
}

// Runs returns how many reloads have been attempted
func (r *Refresher) Runs() int64 {
	return r.runs.Load()
}

// Failures returns how many reloads have failed
func (r *Refresher) Failures() int64 {
	return r.failures.Load()
}

// RunOnce performs a single reload, logging rather than returning its error
func (r *Refresher) RunOnce(ctx context.Context) {
	r.runs.Add(1)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	ctx = logging.WithLogger(ctx, r.logger)

	start := time.Now()
	if err := r.reload(ctx); err != nil {
		r.failures.Add(1)
		r.logger.WithError(err).Error("Scheduled snapshot reload failed, keeping previous snapshot")
		return
	}
	r.logger.WithField("elapsed", time.Since(start).String()).Debug("Scheduled snapshot reload finished")
}

// cronLogger adapts the structured logger to cron.Logger
type cronLogger struct {
	logger *logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(kvFields(keysAndValues)).Debug("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(kvFields(keysAndValues)).WithError(err).Error("cron: " + msg)
}

func kvFields(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}

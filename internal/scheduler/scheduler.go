// Package scheduler repeats harvest runs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Adda-Baaj/pressfeed/internal/logger"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Scheduler runs one job on a cron expression in a fixed timezone.
type Scheduler struct {
	loc *time.Location
	log logger.Logger
}

// New creates a scheduler for timezone (IANA name; empty means UTC).
func New(timezone string, log logger.Logger) (*Scheduler, error) {
	loc := time.UTC
	if tz := strings.TrimSpace(timezone); tz != "" {
		var err error
		if loc, err = time.LoadLocation(tz); err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", tz, err)
		}
	}
	return &Scheduler{loc: loc, log: logger.Ensure(log)}, nil
}

// Next reports when spec fires next after from.
func (s *Scheduler) Next(spec string, from time.Time) (time.Time, error) {
	sched, err := parser.Parse(strings.TrimSpace(spec))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return sched.Next(from.In(s.loc)), nil
}

// Run invokes job on spec until ctx is cancelled, then waits for a running job to return.
// A tick that arrives while the previous job is still running is skipped.
func (s *Scheduler) Run(ctx context.Context, spec string, job func(context.Context)) error {
	spec = strings.TrimSpace(spec)
	sched, err := parser.Parse(spec)
	if err != nil {
		return fmt.Errorf("parse schedule %q: %w", spec, err)
	}

	cl := cronLogger{log: s.log}
	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithParser(parser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	c.Schedule(sched, cron.FuncJob(func() { job(ctx) }))

	s.log.InfoObj("scheduler started", "scheduler_start", map[string]any{
		"schedule": spec,
		"timezone": s.loc.String(),
		"next_run": sched.Next(time.Now().In(s.loc)).Format(time.RFC3339),
	})
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()

	s.log.InfoObj("scheduler stopped", "scheduler_stop", nil)
	return nil
}

// cronLogger routes cron's internal logging through the structured logger.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.DebugObj(msg, "cron", kvFields(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	fields := kvFields(keysAndValues)
	fields["error"] = err
	l.log.ErrorObj(msg, "cron_error", fields)
}

func kvFields(kv []any) map[string]any {
	fields := make(map[string]any, len(kv)/2+1)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return fields
}

package scheduler

import (
	"context"
	"sort"
	"time"

	obscontext "github.com/smallbiznis/slotwise/internal/observability/context"
	obslogger "github.com/smallbiznis/slotwise/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/slotwise/internal/observability/metrics"
	"go.uber.org/zap"
)

// run is one execution of a job. Every log line it emits carries the job
// name and run id so a month-end sweep can be followed end to end.
type run struct {
	job     string
	id      string
	began   time.Time
	log     *zap.Logger
	touched map[string]int
}

func (s *Scheduler) beginRun(ctx context.Context, job string) (context.Context, *run) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = obscontext.WithActor(ctx, "system", "scheduler")
	r := &run{
		job:     job,
		id:      s.genID.Generate().String(),
		began:   time.Now(),
		touched: map[string]int{},
	}
	r.log = obslogger.WithContext(ctx, s.log).With(
		zap.String("job", job),
		zap.String("run_id", r.id),
	)
	r.log.Info("scheduler.job.start")
	return ctx, r
}

// count records rows a job touched, per resource (bookings, bills, ...).
func (r *run) count(resource string, n int) {
	if n <= 0 {
		return
	}
	r.touched[resource] += n
	obsmetrics.Scheduler().AddBatchProcessed(r.job, resource, n)
}

func (r *run) total() int {
	sum := 0
	for _, n := range r.touched {
		sum += n
	}
	return sum
}

func (r *run) finish(err error, timedOut bool) {
	fields := []zap.Field{zap.Duration("elapsed", time.Since(r.began))}
	resources := make([]string, 0, len(r.touched))
	for resource := range r.touched {
		resources = append(resources, resource)
	}
	sort.Strings(resources)
	for _, resource := range resources {
		fields = append(fields, zap.Int(resource, r.touched[resource]))
	}

	switch {
	case timedOut:
		r.log.Warn("scheduler.job.timeout", fields...)
	case err != nil:
		fields = append(fields,
			zap.Error(err),
			zap.String("reason", obsmetrics.ClassifySchedulerJobReason(err)),
			zap.Bool("retryable", obsmetrics.IsSchedulerErrorRetryable(err)),
		)
		r.log.Error("scheduler.job.error", fields...)
	default:
		r.log.Info("scheduler.job.finish", fields...)
	}
}

// cronLogger routes robfig/cron's own messages through zap.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/robfig/cron/v3"
	billdomain "github.com/smallbiznis/slotwise/internal/bill/domain"
	billingcycledomain "github.com/smallbiznis/slotwise/internal/billingcycle/domain"
	bookingdomain "github.com/smallbiznis/slotwise/internal/booking/domain"
	"github.com/smallbiznis/slotwise/internal/clock"
	obsmetrics "github.com/smallbiznis/slotwise/internal/observability/metrics"
	suspensiondomain "github.com/smallbiznis/slotwise/internal/suspension/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrUnknownJob = errors.New("unknown_job")

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Config     Config
	Bookings   bookingdomain.Service
	Bills      billdomain.Service
	Cycles     billingcycledomain.Service
	Suspension suspensiondomain.Service
}

type jobFunc func(ctx context.Context, r *run) error

type Scheduler struct {
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	cfg   Config

	bookings   bookingdomain.Service
	bills      billdomain.Service
	cycles     billingcycledomain.Service
	suspension suspensiondomain.Service

	cron    *cron.Cron
	jobs    map[string]jobFunc
	running sync.Map
}

func New(p Params) *Scheduler {
	s := &Scheduler{
		log:        p.Log.Named("scheduler"),
		genID:      p.GenID,
		clock:      p.Clock,
		cfg:        p.Config.withDefaults(),
		bookings:   p.Bookings,
		bills:      p.Bills,
		cycles:     p.Cycles,
		suspension: p.Suspension,
	}
	s.jobs = map[string]jobFunc{
		JobBookingReminders: s.sendBookingReminders,
		JobAutoComplete:     s.autoCompleteBookings,
		JobGenerateBills:    s.generateBills,
		JobEnsureCycles:     s.ensureCycles,
		JobSuspendUnpaid:    s.suspendUnpaid,
	}

	logger := cronLogger{log: s.log.Sugar()}
	s.cron = cron.New(
		cron.WithLocation(p.Clock.Location()),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	return s
}

// Jobs returns the registered job names in a stable order.
func Jobs() []string {
	names := []string{
		JobBookingReminders,
		JobAutoComplete,
		JobGenerateBills,
		JobEnsureCycles,
		JobSuspendUnpaid,
	}
	sort.Strings(names)
	return names
}

// Start registers every enabled job with cron and starts the ticker.
func (s *Scheduler) Start() error {
	for _, name := range Jobs() {
		if !s.isJobEnabled(name) {
			s.log.Info("scheduler job disabled", zap.String("job", name))
			continue
		}
		spec := s.cfg.Schedules[name]
		job := name
		if _, err := s.cron.AddFunc(spec, func() {
			_ = s.RunJob(context.Background(), job)
		}); err != nil {
			return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
		}
		s.log.Info("scheduler job registered", zap.String("job", name), zap.String("spec", spec))
	}
	s.cron.Start()
	return nil
}

// Stop halts the ticker and waits for running jobs until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunJob runs a single job by name. A run that overlaps a still-active run
// of the same job is skipped.
func (s *Scheduler) RunJob(ctx context.Context, name string) error {
	fn, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.runJob(ctx, name, fn)
}

func (s *Scheduler) runJob(ctx context.Context, name string, fn jobFunc) error {
	metrics := obsmetrics.Scheduler()
	if _, busy := s.running.LoadOrStore(name, struct{}{}); busy {
		metrics.IncJobSkipped(name)
		s.log.Info("scheduler.job.skipped", zap.String("job", name))
		return nil
	}
	defer s.running.Delete(name)

	ctx, r := s.beginRun(ctx, name)
	if timeout := s.cfg.Timeouts[name]; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ctx, span := otel.Tracer("slotwise/scheduler").Start(ctx, "scheduler."+name)
	span.SetAttributes(
		attribute.String("scheduler.job", name),
		attribute.String("scheduler.run_id", r.id),
	)
	defer span.End()

	metrics.IncJobRun(name)
	err := fn(ctx, r)
	metrics.ObserveJobDuration(name, time.Since(r.began))
	span.SetAttributes(attribute.Int("scheduler.processed", r.total()))

	// Work left behind by a timed out run is picked up by the next tick.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		metrics.IncJobTimeout(name)
		metrics.IncJobError(name, context.DeadlineExceeded)
		span.SetAttributes(attribute.Bool("scheduler.timeout", true))
		r.finish(err, true)
		return nil
	}
	if err != nil {
		metrics.IncJobError(name, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, obsmetrics.ClassifySchedulerJobReason(err))
	}
	r.finish(err, false)
	return err
}

func (s *Scheduler) isJobEnabled(name string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, job := range s.cfg.EnabledJobs {
		if strings.EqualFold(strings.TrimSpace(job), name) {
			return true
		}
	}
	return false
}

func (s *Scheduler) sendBookingReminders(ctx context.Context, r *run) error {
	sent, err := s.bookings.SendUpcomingReminders(ctx, s.clock.Now())
	r.count("reminders", sent)
	return err
}

func (s *Scheduler) autoCompleteBookings(ctx context.Context, r *run) error {
	completed, err := s.bookings.AutoComplete(ctx, s.clock.Now())
	r.count("bookings", int(completed))
	return err
}

// generateBills freezes the month that just closed. Repeated ticks are cheap
// because existing bills are left alone and only unsent statements retry.
// Ended bookings are completed first so the auto_complete job firing on the
// same tick cannot leave them out of a frozen bill.
func (s *Scheduler) generateBills(ctx context.Context, r *run) error {
	now := s.clock.Now()
	completed, err := s.bookings.AutoComplete(ctx, now)
	r.count("bookings", int(completed))
	if err != nil {
		return err
	}

	month := clock.PreviousMonth(clock.CycleMonth(now, s.clock.Location()))
	result, err := s.bills.GenerateForMonth(ctx, month)
	r.count("bills", result.Created)
	r.count("statements", result.Emailed)
	return err
}

func (s *Scheduler) ensureCycles(ctx context.Context, r *run) error {
	created, err := s.cycles.EnsureForMonth(ctx, clock.CycleMonth(s.clock.Now(), s.clock.Location()))
	r.count("billing_cycles", created)
	return err
}

func (s *Scheduler) suspendUnpaid(ctx context.Context, r *run) error {
	suspended, err := s.suspension.SuspendUnpaid(ctx, s.clock.Now())
	r.count("providers", suspended)
	return err
}

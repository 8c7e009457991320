// Package schedule triggers unattended recurring runs from a cron
// expression.
package schedule

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "iperfmon/pkg/logx"
)

// Job is invoked on every trigger. The service does not wait for it;
// long runs overlap at the job's discretion (Controller already
// serializes actual measurements).
type Job func(ctx context.Context)

type Service struct {
	log    logx.Logger
	parser cron.Parser
	job    Job

	mu   sync.Mutex
	spec string
	c    *cron.Cron
	// ctx is the lifetime handed to Start; triggers fired after Stop see
	// a cancelled context.
	ctx context.Context
}

func New(job Job, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		log: log,
		job: job,
		// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// Validate checks a cron expression without starting anything.
func (s *Service) Validate(spec string) error {
	if spec == "" {
		return errors.New("empty cron spec")
	}
	_, err := s.parser.Parse(spec)
	return err
}

// Start begins triggering on spec. Calling Start while running replaces
// the schedule.
func (s *Service) Start(ctx context.Context, spec string) error {
	sched, err := s.parser.Parse(spec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		s.stopLocked(ctx)
	}

	s.spec = spec
	s.ctx = ctx
	c := cron.New(cron.WithParser(s.parser))
	c.Schedule(sched, cron.FuncJob(func() {
		s.mu.Lock()
		jctx := s.ctx
		s.mu.Unlock()
		if jctx == nil || jctx.Err() != nil {
			return
		}
		s.log.Info("scheduled run triggered", logx.String("spec", spec))
		s.job(jctx)
	}))
	c.Start()
	s.c = c

	s.log.Info("schedule started",
		logx.String("spec", spec),
		logx.Time("next", sched.Next(time.Now())))
	return nil
}

// Next reports the upcoming trigger time, or zero when not running.
func (s *Service) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c == nil {
		return time.Time{}
	}
	entries := s.c.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked(ctx)
}

func (s *Service) stopLocked(ctx context.Context) {
	if s.c == nil {
		return
	}
	c := s.c
	s.c = nil
	s.ctx = nil
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		// best-effort
	}
	s.log.Info("schedule stopped", logx.String("spec", s.spec))
}

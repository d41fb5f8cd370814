// Package schedule wraps robfig/cron into a small start/stop service that
// fires the digest batch on a timezone-aware recurring spec.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"digestbot/pkg/logx"
)

type Config struct {
	// Spec is a standard 5-field cron expression; descriptors like
	// "@daily" are accepted too.
	Spec string
	// Timezone is the IANA zone the spec is evaluated in.
	Timezone string
}

// Job is the unit of work a trigger fires. Errors are the job's own
// business; the trigger only logs them.
type Job func(ctx context.Context) error

type Service struct {
	cfg Config
	log logx.Logger

	mu sync.Mutex
	c  *cron.Cron
}

func New(cfg Config, log logx.Logger) *Service {
	return &Service{cfg: cfg, log: log}
}

// Start validates the spec, registers the job and begins firing. The job
// runs with the given ctx; each fire is logged with its duration.
func (s *Service) Start(ctx context.Context, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}

	loc, err := time.LoadLocation(s.cfg.Timezone)
	if err != nil {
		return fmt.Errorf("schedule: invalid timezone %q: %w", s.cfg.Timezone, err)
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithParser(parser), cron.WithLocation(loc))

	id, err := c.AddFunc(s.cfg.Spec, func() {
		start := time.Now()
		s.log.Info("scheduled digest fired")
		if err := job(ctx); err != nil {
			s.log.Error("scheduled digest failed", logx.Err(err), logx.Duration("dur", time.Since(start)))
			return
		}
		s.log.Info("scheduled digest done", logx.Duration("dur", time.Since(start)))
	})
	if err != nil {
		return fmt.Errorf("schedule: invalid cron spec %q: %w", s.cfg.Spec, err)
	}

	c.Start()
	s.c = c
	s.log.Info("scheduler started",
		logx.String("spec", s.cfg.Spec),
		logx.String("tz", loc.String()),
		logx.Time("next", c.Entry(id).Next))
	return nil
}

// Stop halts firing and waits for an in-flight job, bounded by ctx.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		// stop continues in background
	}
}

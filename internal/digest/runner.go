package digest

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"digestbot/internal/bitrix"
	"digestbot/pkg/logx"
)

// API is the slice of the portal client the runner aggregates through.
type API interface {
	ActiveUsers(ctx context.Context, onlyUserID int64) ([]bitrix.User, error)
	TodayEvents(ctx context.Context, userID string, opt bitrix.CalendarOptions) ([]bitrix.Event, error)
	OpenTasks(ctx context.Context, userID string, opt bitrix.TaskOptions) ([]bitrix.Task, error)
}

// Deliverer sends one rendered digest to one user.
type Deliverer interface {
	Deliver(ctx context.Context, userID, message string) error
}

// ErrRunInProgress is returned when a run is triggered while the previous
// one has not settled. The trigger skips rather than double-sending.
var ErrRunInProgress = errors.New("digest: run already in progress")

// Options fixes runner behavior for the process lifetime.
type Options struct {
	// Workers bounds simultaneous per-user pipelines.
	Workers int
	// Location anchors "today" for both the event window and the date line.
	Location *time.Location
	// Window is the event span from start of today.
	Window time.Duration
	// Locale selects digest wording.
	Locale string
	// ExcludeCompleted drops completed tasks from the task query.
	ExcludeCompleted bool
	// CheckPermissions is passed through to the calendar query.
	CheckPermissions bool
	// TestUserID, when > 0, narrows the run to that single user.
	TestUserID int64
}

// UserFailure is one captured per-user pipeline failure.
type UserFailure struct {
	UserID string
	Name   string
	Reason string
}

// Summary is the outcome of one batch run.
type Summary struct {
	RunID     string
	Users     int
	Delivered int
	Failed    int
	Failures  []UserFailure
	Duration  time.Duration
}

// Runner drives the per-user pipeline (fetch events + tasks concurrently,
// format, deliver) across the whole directory with a bounded worker pool.
// One user's failure never aborts or delays the others.
type Runner struct {
	api      API
	dispatch Deliverer
	opt      Options
	log      logx.Logger

	// now is swappable in tests.
	now func() time.Time

	mu      sync.Mutex
	running bool
}

func NewRunner(api API, dispatch Deliverer, opt Options, log logx.Logger) *Runner {
	if opt.Workers <= 0 {
		opt.Workers = 4
	}
	if opt.Location == nil {
		opt.Location = time.UTC
	}
	if opt.Window <= 0 {
		opt.Window = 24 * time.Hour
	}
	return &Runner{api: api, dispatch: dispatch, opt: opt, log: log, now: time.Now}
}

// Run executes one full batch and returns when every user's pipeline has
// settled. Overlapping invocations are rejected with ErrRunInProgress.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		r.log.Warn("digest run still in progress; skipping trigger")
		return Summary{}, ErrRunInProgress
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	start := r.now()
	sum := Summary{RunID: uuid.New().String()}
	log := r.log.With(logx.String("run", sum.RunID))

	users, err := r.api.ActiveUsers(ctx, r.opt.TestUserID)
	if err != nil {
		return sum, fmt.Errorf("fetch active users: %w", err)
	}
	if len(users) == 0 {
		log.Warn("no eligible users; nothing to deliver")
		return sum, nil
	}
	sum.Users = len(users)
	log.Info("digest run started", logx.Int("users", len(users)), logx.Int("workers", r.opt.Workers))

	workers := r.opt.Workers
	if workers > len(users) {
		workers = len(users)
	}

	var (
		resMu sync.Mutex
		wg    sync.WaitGroup
	)
	queue := make(chan bitrix.User)

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for u := range queue {
				err := r.runUser(ctx, u)
				resMu.Lock()
				if err != nil {
					sum.Failed++
					sum.Failures = append(sum.Failures, UserFailure{UserID: u.ID, Name: u.DisplayName(), Reason: err.Error()})
				} else {
					sum.Delivered++
				}
				resMu.Unlock()
				if err != nil {
					log.Error("digest delivery failed", logx.String("user", u.ID), logx.String("name", u.DisplayName()), logx.Err(err))
				} else {
					log.Info("digest delivered", logx.String("user", u.ID), logx.String("name", u.DisplayName()))
				}
			}
		}()
	}
	for _, u := range users {
		queue <- u
	}
	close(queue)
	wg.Wait()

	sum.Duration = r.now().Sub(start)
	fields := []logx.Field{
		logx.Int("users", sum.Users),
		logx.Int("delivered", sum.Delivered),
		logx.Int("failed", sum.Failed),
		logx.Duration("dur", sum.Duration),
	}
	if sum.Failed > 0 {
		log.Warn("digest run finished with failures", fields...)
	} else {
		log.Info("digest run finished", fields...)
	}
	return sum, nil
}

// runUser is one user's full pipeline. Panics are contained here so a bad
// payload cannot take sibling pipelines down with it.
func (r *Runner) runUser(ctx context.Context, u bitrix.User) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in user pipeline: %v\n%s", rec, debug.Stack())
		}
	}()

	var (
		events []bitrix.Event
		tasks  []bitrix.Task
		evErr  error
		tkErr  error
		wg     sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		events, evErr = r.api.TodayEvents(ctx, u.ID, bitrix.CalendarOptions{
			Location:         r.opt.Location,
			Span:             r.opt.Window,
			CheckPermissions: r.opt.CheckPermissions,
		})
	}()
	go func() {
		defer wg.Done()
		tasks, tkErr = r.api.OpenTasks(ctx, u.ID, bitrix.TaskOptions{
			ExcludeCompleted: r.opt.ExcludeCompleted,
		})
	}()
	wg.Wait()

	if evErr != nil {
		return fmt.Errorf("fetch events: %w", evErr)
	}
	if tkErr != nil {
		return fmt.Errorf("fetch tasks: %w", tkErr)
	}

	msg := Format(u, events, tasks, FormatOptions{
		Now:    r.now().In(r.opt.Location),
		Locale: r.opt.Locale,
	})
	return r.dispatch.Deliver(ctx, u.ID, msg)
}

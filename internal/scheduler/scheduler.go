// Package scheduler fires jobs on wall-clock minute boundaries.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Spec decides whether a job fires at a given minute tick. Seconds and finer
// are irrelevant: the scheduler evaluates once per minute.
type Spec interface {
	Matches(t time.Time) bool
}

// dailySpec fires once per day at a fixed hour and minute.
type dailySpec struct {
	hour   int
	minute int
}

func (s dailySpec) Matches(t time.Time) bool {
	return t.Hour() == s.hour && t.Minute() == s.minute
}

// hourlySpec fires once per hour at a fixed minute.
type hourlySpec struct {
	minute int
}

func (s hourlySpec) Matches(t time.Time) bool {
	return t.Minute() == s.minute
}

// cronSpec fires whenever the cron expression matches.
type cronSpec struct {
	schedule cron.Schedule
}

func (s cronSpec) Matches(t time.Time) bool {
	tick := t.Truncate(time.Minute)
	return s.schedule.Next(tick.Add(-time.Second)).Equal(tick)
}

// At returns a spec firing once per day at hour:minute.
func At(hour, minute int) Spec {
	return dailySpec{hour: hour, minute: minute}
}

// EveryHourAt returns a spec firing once per hour at the given minute.
func EveryHourAt(minute int) Spec {
	return hourlySpec{minute: minute}
}

// Cron returns a spec for a standard five-field cron expression.
func Cron(expr string) (Spec, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return cronSpec{schedule: schedule}, nil
}

// Job couples a schedule spec with the work to run.
type Job struct {
	Name string
	Spec Spec
	Run  func(ctx context.Context) error
}

// Scheduler evaluates its jobs once per minute and spawns the matching ones.
type Scheduler struct {
	jobs []Job
}

// New creates an empty scheduler.
func New() *Scheduler {
	return &Scheduler{}
}

// Add registers a job.
func (s *Scheduler) Add(job Job) {
	s.jobs = append(s.jobs, job)
}

// Start runs the scheduling loop in a goroutine. Each sleep target is the
// next minute boundary computed from the current time, so slow jobs and
// scheduling latency never accumulate drift. Matching jobs are spawned
// fire-and-forget; a slow job delays neither the next tick nor its siblings.
func (s *Scheduler) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *Scheduler) run(ctx context.Context) {
	for {
		now := time.Now()
		next := now.Truncate(time.Minute).Add(time.Minute)

		select {
		case <-time.After(next.Sub(now)):
		case <-ctx.Done():
			return
		}

		tick := time.Now()
		s.Tick(ctx, tick)
	}
}

// Tick evaluates every job against the given time and spawns the matches.
func (s *Scheduler) Tick(ctx context.Context, t time.Time) {
	for _, job := range s.jobs {
		if job.Spec.Matches(t) {
			go s.dispatch(ctx, job)
		}
	}
}

// dispatch runs one job firing, containing panics and logging failures so a
// broken job can never take the scheduler loop down with it.
func (s *Scheduler) dispatch(ctx context.Context, job Job) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[scheduler] job %s panicked: %v", job.Name, r)
		}
	}()

	log.Printf("[scheduler] starting job: %s", job.Name)
	start := time.Now()

	if err := job.Run(ctx); err != nil {
		log.Printf("[scheduler] job %s failed: %v", job.Name, err)
		return
	}
	log.Printf("[scheduler] job %s completed in %v", job.Name, time.Since(start))
}

// Package worker bundles the bot's background loops behind a single
// start/stop handle.
package worker

import (
	"context"
	"log"
	"sync"

	"yakudo-bot/internal/follow"
	"yakudo-bot/internal/jobs"
	"yakudo-bot/internal/monitor"
	"yakudo-bot/internal/platform"
	"yakudo-bot/internal/processor"
	"yakudo-bot/internal/scheduler"
	"yakudo-bot/internal/services"
)

// Service manages the background workers: the note monitor, the follow
// monitor and the maintenance scheduler.
type Service struct {
	noteMonitor   *monitor.Monitor
	followMonitor *follow.Monitor
	sched         *scheduler.Scheduler

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.RWMutex
}

// Source combines the two platform capabilities the workers need.
type Source interface {
	platform.Client
	platform.StreamSource
}

// New wires the workers against the given platform client and score store.
func New(client Source, scores *services.ScoresService, hashtag string) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	proc := processor.New(client, scores)
	maintenance := jobs.New(client, scores)

	sched := scheduler.New()
	sched.Add(scheduler.Job{
		Name: "hourly-report",
		Spec: scheduler.EveryHourAt(0),
		Run:  maintenance.HourlyReport,
	})
	sched.Add(scheduler.Job{
		Name: "daily-report",
		Spec: scheduler.At(23, 59),
		Run:  maintenance.DailyReport,
	})
	sched.Add(scheduler.Job{
		Name: "cleanup",
		Spec: scheduler.EveryHourAt(50),
		Run:  maintenance.Cleanup,
	})

	return &Service{
		noteMonitor:   monitor.New(client, proc, hashtag),
		followMonitor: follow.New(client, client),
		sched:         sched,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start launches all background workers.
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	log.Println("Starting background workers...")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.noteMonitor.Run(s.ctx); err != nil && s.ctx.Err() == nil {
			log.Printf("note monitor exited: %v", err)
		}
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.followMonitor.SyncFollowers(s.ctx); err != nil && s.ctx.Err() == nil {
			log.Printf("failed to sync followers: %v", err)
		}
		if err := s.followMonitor.Run(s.ctx); err != nil && s.ctx.Err() == nil {
			log.Printf("follow monitor exited: %v", err)
		}
	}()

	s.sched.Start(s.ctx)

	s.running = true
	log.Println("Background workers started successfully")
}

// Stop signals all workers to finish and waits for them.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	log.Println("Stopping background workers...")
	s.cancel()
	s.wg.Wait()
	s.running = false
	log.Println("Background workers stopped")
}

// IsRunning reports whether the workers are currently running.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

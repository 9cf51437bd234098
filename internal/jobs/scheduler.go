// Package jobs runs the engine's batch operations on cron schedules.
package jobs

import (
	"buyer-intent-engine/internal/config"
	"buyer-intent-engine/internal/logger"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	JobDecay     = "decay"
	JobSnapshots = "snapshots"
	JobScarcity  = "scarcity"
)

type BatchScorer interface {
	ApplyTimeDecayToInactiveBuyers() (int, error)
	CreateSnapshotsForAllBuyers() (int, error)
}

type ScarcityRecorder interface {
	RecordScarcityTransitions() (int, error)
}

// Job is one named batch operation and the cron spec it runs on.
type Job struct {
	Name     string
	Schedule string
	Run      func() (int, error)
}

type Scheduler struct {
	cron *cron.Cron
	jobs []Job
	log  *logger.Logger
}

func NewScheduler(cfg config.SchedulerConfig, scores BatchScorer, market ScarcityRecorder, log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger{log}),
			cron.SkipIfStillRunning(cronLogger{log}),
		)),
		jobs: []Job{
			{Name: JobSnapshots, Schedule: cfg.SnapshotSchedule, Run: scores.CreateSnapshotsForAllBuyers},
			{Name: JobDecay, Schedule: cfg.DecaySchedule, Run: scores.ApplyTimeDecayToInactiveBuyers},
			{Name: JobScarcity, Schedule: cfg.ScarcitySchedule, Run: market.RecordScarcityTransitions},
		},
		log: log,
	}
}

// Start registers every job with a non-empty schedule and starts the cron loop.
func (s *Scheduler) Start() error {
	for _, job := range s.jobs {
		if job.Schedule == "" {
			s.log.Info("Job %s has no schedule, skipping", job.Name)
			continue
		}

		name := job.Name
		if _, err := s.cron.AddFunc(job.Schedule, func() { s.execute(name) }); err != nil {
			return fmt.Errorf("schedule %s job (%q): %w", job.Name, job.Schedule, err)
		}
		s.log.Info("⏰ Scheduled %s job (%s)", job.Name, job.Schedule)
	}

	s.cron.Start()
	s.log.Info("✅ Job scheduler started")
	return nil
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("Job scheduler stopped")
}

// RunNow executes a job immediately, outside its schedule.
func (s *Scheduler) RunNow(name string) (int, error) {
	job, ok := s.find(name)
	if !ok {
		return 0, fmt.Errorf("unknown job %q", name)
	}
	return s.run(job)
}

func (s *Scheduler) Names() []string {
	names := make([]string, 0, len(s.jobs))
	for _, job := range s.jobs {
		names = append(names, job.Name)
	}
	return names
}

func (s *Scheduler) execute(name string) {
	job, ok := s.find(name)
	if !ok {
		return
	}
	if _, err := s.run(job); err != nil {
		s.log.Error("❌ Job %s failed: %v", name, err)
	}
}

func (s *Scheduler) run(job Job) (int, error) {
	start := time.Now()
	s.log.Info("▶️  Running %s job", job.Name)

	rows, err := job.Run()
	if err != nil {
		return rows, fmt.Errorf("%s job: %w", job.Name, err)
	}

	s.log.Info("✅ %s job finished in %v (%d rows)", job.Name, time.Since(start), rows)
	return rows, nil
}

func (s *Scheduler) find(name string) (Job, bool) {
	for _, job := range s.jobs {
		if job.Name == name {
			return job, true
		}
	}
	return Job{}, false
}

// cronLogger adapts the engine logger to cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: %s %v", msg, keysAndValues)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: %s: %v %v", msg, err, keysAndValues)
}

package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"

	"github.com/openshelf/bookswap/internal/tasks"
)

// TaskEnqueuer enqueues background tasks for asynchronous processing.
type TaskEnqueuer interface {
	Add(tasks ...backlite.Task) *backlite.TaskAddOp
}

// AuditCleanupScheduler periodically enqueues audit retention cleanup.
type AuditCleanupScheduler struct {
	enqueuer      TaskEnqueuer
	schedule      string
	retentionDays int

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewAuditCleanupScheduler creates a new scheduler instance.
func NewAuditCleanupScheduler(enqueuer TaskEnqueuer, schedule string, retentionDays int) *AuditCleanupScheduler {
	return &AuditCleanupScheduler{
		enqueuer:      enqueuer,
		schedule:      schedule,
		retentionDays: retentionDays,
		cron:          cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler.
func (s *AuditCleanupScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if s.schedule == "" {
		log.Printf("Audit cleanup scheduler: no schedule configured, skipping")
		return nil
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		s.enqueueCleanup()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule audit cleanup job: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Audit cleanup scheduler: started with schedule '%s' (retention %d days)",
		s.schedule, s.retentionDays)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler.
func (s *AuditCleanupScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Audit cleanup scheduler: stopped")
}

// IsRunning returns whether the scheduler is currently active.
func (s *AuditCleanupScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func (s *AuditCleanupScheduler) enqueueCleanup() {
	task := tasks.PruneAuditLogTask{RetentionDays: s.retentionDays}
	if _, err := s.enqueuer.Add(task).Save(); err != nil {
		log.Printf("Audit cleanup scheduler: failed to enqueue cleanup task: %v", err)
		return
	}
	log.Printf("Audit cleanup scheduler: enqueued cleanup task (retention %d days)", s.retentionDays)
}

package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// MovementLogPruner deletes movement records older than a retention window.
type MovementLogPruner interface {
	DeleteOldEvents(retention time.Duration) (int64, error)
}

const defaultRetentionDays = 90

// PruneAuditLogTask trims the movement log down to the retention window.
// The log is the only evidence trail for pool adjustments, so it is pruned
// by age, never truncated wholesale.
type PruneAuditLogTask struct {
	RetentionDays int `json:"retention_days"`
}

func (t PruneAuditLogTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "prune_audit_log",
		MaxAttempts: 3,
		Backoff:     10 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// PruneAuditLogProcessor creates a processor function for PruneAuditLogTask.
func PruneAuditLogProcessor(pruner MovementLogPruner) backlite.QueueProcessor[PruneAuditLogTask] {
	return func(ctx context.Context, task PruneAuditLogTask) error {
		if pruner == nil {
			return fmt.Errorf("movement log pruner not configured")
		}

		days := task.RetentionDays
		if days <= 0 {
			days = defaultRetentionDays
		}

		pruned, err := pruner.DeleteOldEvents(time.Duration(days) * 24 * time.Hour)
		if err != nil {
			return fmt.Errorf("prune audit log: %w", err)
		}

		log.Printf("[TASK] Pruned %d movement records past the %d day retention window", pruned, days)
		return nil
	}
}

// NewPruneAuditLogQueue creates a backlite queue for audit log pruning.
func NewPruneAuditLogQueue(pruner MovementLogPruner) backlite.Queue {
	return backlite.NewQueue(PruneAuditLogProcessor(pruner))
}

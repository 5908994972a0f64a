// Package audit records every inventory movement: who moved which copies
// of which title, when, and whether the operation succeeded.
package audit

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/openshelf/bookswap/internal/database/audit"
	"github.com/openshelf/bookswap/internal/entities"
)

// Service provides high-level audit logging functionality.
type Service struct {
	repo *audit.Repository
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	if event.OperationID == "" {
		event.OperationID = uuid.NewString()
	}
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	if event.OperationID == "" {
		event.OperationID = uuid.NewString()
	}
	go func() {
		if err := s.repo.LogEvent(event); err != nil {
			log.Printf("Failed to log audit event: %v", err)
		}
	}()
}

// LogTransfer records a borrow or return of copies between the pool and a
// user's holding.
func (s *Service) LogTransfer(action entities.AuditAction, actorID, bookID uint, count int64, err error) {
	event := &entities.AuditEvent{
		ActorID: actorID,
		Action:  action,
		BookID:  &bookID,
		Delta:   count,
		Status:  entities.AuditStatusSuccess,
	}
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}
	s.LogAsync(event)
}

// LogRestock records an administrative pool adjustment. Restock is the one
// operation allowed to change circulating totals, so it is always audited
// with the acting administrator.
func (s *Service) LogRestock(actorID, bookID uint, delta int64, err error) {
	event := &entities.AuditEvent{
		ActorID: actorID,
		Action:  entities.AuditActionRestock,
		BookID:  &bookID,
		Delta:   delta,
		Status:  entities.AuditStatusSuccess,
	}
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}
	s.LogAsync(event)
}

// LogBookDelete records removal of a title from the catalog.
func (s *Service) LogBookDelete(actorID, bookID uint, err error) {
	event := &entities.AuditEvent{
		ActorID: actorID,
		Action:  entities.AuditActionBookDelete,
		BookID:  &bookID,
		Status:  entities.AuditStatusSuccess,
	}
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}
	s.LogAsync(event)
}

// LogUserDelete records removal of a user account.
func (s *Service) LogUserDelete(actorID, userID uint, err error) {
	event := &entities.AuditEvent{
		ActorID: actorID,
		Action:  entities.AuditActionUserDelete,
		UserID:  &userID,
		Status:  entities.AuditStatusSuccess,
	}
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}
	s.LogAsync(event)
}

// LogBan records a ban or unban of a user.
func (s *Service) LogBan(actorID, userID uint, banned bool) {
	action := entities.AuditActionUserBan
	if !banned {
		action = entities.AuditActionUserUnban
	}
	s.LogAsync(&entities.AuditEvent{
		ActorID: actorID,
		Action:  action,
		UserID:  &userID,
		Status:  entities.AuditStatusSuccess,
	})
}

// GetEvents retrieves paginated audit events.
func (s *Service) GetEvents(actorID uint, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(actorID, limit, offset)
}

// GetEventsForBook retrieves the movement history of a title.
func (s *Service) GetEventsForBook(bookID uint, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEventsForBook(bookID, limit, offset)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(cutoff)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

package entities

import "time"

type AuditAction string

const (
	AuditActionBorrow     AuditAction = "borrow"
	AuditActionReturn     AuditAction = "return"
	AuditActionRestock    AuditAction = "restock"
	AuditActionBookDelete AuditAction = "book_delete"
	AuditActionUserDelete AuditAction = "user_delete"
	AuditActionUserBan    AuditAction = "user_ban"
	AuditActionUserUnban  AuditAction = "user_unban"
)

type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailed  AuditStatus = "failed"
)

// AuditEvent records who moved which copies where, and when.
type AuditEvent struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	OperationID string      `gorm:"index;size:36" json:"operation_id"`
	ActorID     uint        `gorm:"index" json:"actor_id"`
	Action      AuditAction `gorm:"index;size:50" json:"action"`
	BookID      *uint       `gorm:"index" json:"book_id,omitempty"`
	UserID      *uint       `gorm:"index" json:"user_id,omitempty"`
	Delta       int64       `json:"delta"`
	Status      AuditStatus `gorm:"size:20" json:"status"`
	ErrorMsg    string      `gorm:"size:500" json:"error_msg,omitempty"`
	CreatedAt   time.Time   `gorm:"index" json:"created_at"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}

package audit

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	auditrepo "github.com/openshelf/bookswap/internal/database/audit"
	"github.com/openshelf/bookswap/internal/entities"
)

func setupService(t *testing.T) *Service {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.AuditEvent{})
	require.NoError(t, err)

	return NewService(auditrepo.NewRepository(db))
}

func TestService_Log(t *testing.T) {
	service := setupService(t)

	event := &entities.AuditEvent{
		ActorID: 1,
		Action:  entities.AuditActionBorrow,
		Status:  entities.AuditStatusSuccess,
	}
	require.NoError(t, service.Log(event))

	// Every event gets an operation ID for correlating log lines.
	assert.NotEmpty(t, event.OperationID)
	assert.NotZero(t, event.ID)
}

func TestService_LogTransfer(t *testing.T) {
	service := setupService(t)

	t.Run("success", func(t *testing.T) {
		service.LogTransfer(entities.AuditActionBorrow, 1, 7, 2, nil)

		require.Eventually(t, func() bool {
			_, total, err := service.GetEvents(1, 10, 0)
			return err == nil && total == 1
		}, time.Second, 10*time.Millisecond)

		events, _, err := service.GetEvents(1, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, entities.AuditStatusSuccess, events[0].Status)
		assert.Equal(t, int64(2), events[0].Delta)
		require.NotNil(t, events[0].BookID)
		assert.Equal(t, uint(7), *events[0].BookID)
	})

	t.Run("failure records the error", func(t *testing.T) {
		service.LogTransfer(entities.AuditActionBorrow, 2, 7, 2, errors.New("not enough copies available"))

		require.Eventually(t, func() bool {
			_, total, err := service.GetEvents(2, 10, 0)
			return err == nil && total == 1
		}, time.Second, 10*time.Millisecond)

		events, _, err := service.GetEvents(2, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, entities.AuditStatusFailed, events[0].Status)
		assert.Contains(t, events[0].ErrorMsg, "not enough copies")
	})

	t.Run("long error message is truncated", func(t *testing.T) {
		service.LogTransfer(entities.AuditActionReturn, 3, 7, 1, errors.New(strings.Repeat("x", 600)))

		require.Eventually(t, func() bool {
			_, total, err := service.GetEvents(3, 10, 0)
			return err == nil && total == 1
		}, time.Second, 10*time.Millisecond)

		events, _, err := service.GetEvents(3, 10, 0)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(events[0].ErrorMsg), 500)
		assert.True(t, strings.HasSuffix(events[0].ErrorMsg, "..."))
	})
}

func TestService_LogBan(t *testing.T) {
	service := setupService(t)

	service.LogBan(1, 5, true)
	service.LogBan(1, 5, false)

	require.Eventually(t, func() bool {
		_, total, err := service.GetEvents(1, 10, 0)
		return err == nil && total == 2
	}, time.Second, 10*time.Millisecond)

	events, _, err := service.GetEvents(1, 10, 0)
	require.NoError(t, err)

	actions := []entities.AuditAction{events[0].Action, events[1].Action}
	assert.Contains(t, actions, entities.AuditActionUserBan)
	assert.Contains(t, actions, entities.AuditActionUserUnban)
}

func TestService_DeleteOldEvents(t *testing.T) {
	service := setupService(t)

	require.NoError(t, service.Log(&entities.AuditEvent{
		ActorID:   1,
		Action:    entities.AuditActionBorrow,
		Status:    entities.AuditStatusSuccess,
		CreatedAt: time.Now().Add(-91 * 24 * time.Hour),
	}))
	require.NoError(t, service.Log(&entities.AuditEvent{
		ActorID: 1,
		Action:  entities.AuditActionReturn,
		Status:  entities.AuditStatusSuccess,
	}))

	deleted, err := service.DeleteOldEvents(90 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

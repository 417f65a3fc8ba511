package staff

import (
	"context"
	"errors"
	"testing"
	"time"

	"comanda/internal/config"
	"comanda/internal/database"
	"comanda/internal/logging"
	"comanda/internal/models"

	"github.com/jinzhu/gorm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*gorm.DB, *Service) {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Dialect: "sqlite3", DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	return db, NewService(db, logging.Discard())
}

func TestCreateWaiter(t *testing.T) {
	_, svc := setup(t)
	ctx := context.Background()

	waiter, err := svc.CreateWaiter(ctx, "  Carlos  ")
	require.NoError(t, err)
	assert.Equal(t, "Carlos", waiter.Name)
	assert.Equal(t, models.RoleWaiter, waiter.Role)
	assert.Equal(t, models.UserActive, waiter.Status)

	_, err = svc.CreateWaiter(ctx, "Carlos")
	assert.True(t, errors.Is(err, models.ErrConflict))

	_, err = svc.CreateWaiter(ctx, " ")
	assert.True(t, errors.Is(err, models.ErrValidation))

	_, err = svc.CreateWaiter(ctx, "Ana")
	require.NoError(t, err)

	waiters, err := svc.ListWaiters(ctx)
	require.NoError(t, err)
	require.Len(t, waiters, 2)
	assert.Equal(t, "Ana", waiters[0].Name)
	assert.Equal(t, "Carlos", waiters[1].Name)
}

func TestListWaiters_ExcludesAdmins(t *testing.T) {
	db, svc := setup(t)
	email := "admin@restaurant.com"
	require.NoError(t, db.Create(&models.User{Name: "Administrador", Email: &email, Role: models.RoleAdmin, Status: models.UserActive}).Error)

	waiters, err := svc.ListWaiters(context.Background())
	require.NoError(t, err)
	assert.Empty(t, waiters)
}

func TestSetWaiterActive_ClosesSessions(t *testing.T) {
	db, svc := setup(t)
	ctx := context.Background()

	waiter, err := svc.CreateWaiter(ctx, "Ana")
	require.NoError(t, err)
	session := models.UserSession{UserID: waiter.ID, Token: "tok", IsActive: true, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, db.Create(&session).Error)

	updated, err := svc.SetWaiterActive(ctx, waiter.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.UserInactive, updated.Status)

	var reloaded models.UserSession
	require.NoError(t, db.First(&reloaded, session.ID).Error)
	assert.False(t, reloaded.IsActive)
	assert.NotNil(t, reloaded.LogoutTime)

	updated, err = svc.SetWaiterActive(ctx, waiter.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.UserActive, updated.Status)

	_, err = svc.SetWaiterActive(ctx, 999, true)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestDeleteWaiter_IsSoft(t *testing.T) {
	db, svc := setup(t)
	ctx := context.Background()

	waiter, err := svc.CreateWaiter(ctx, "Ana")
	require.NoError(t, err)
	require.NoError(t, svc.DeleteWaiter(ctx, waiter.ID))

	waiters, err := svc.ListWaiters(ctx)
	require.NoError(t, err)
	assert.Empty(t, waiters)

	var deleted models.User
	require.NoError(t, db.Unscoped().First(&deleted, waiter.ID).Error)
	assert.NotNil(t, deleted.DeletedAt)

	err = svc.DeleteWaiter(ctx, waiter.ID)
	assert.True(t, errors.Is(err, models.ErrNotFound))

	// the name is free again once the old account is gone
	_, err = svc.CreateWaiter(ctx, "Ana")
	require.NoError(t, err)
}

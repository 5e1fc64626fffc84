package service

import (
	"context"
	"testing"
	"time"

	"accessdesk/internal/database"
	"accessdesk/internal/featureflags"
	"accessdesk/internal/models"
	"accessdesk/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// env wires the services over a private in-memory database.
type env struct {
	db       *gorm.DB
	requests *RequestService
	catalog  *CatalogService
	users    *UserService
}

func newEnv(t *testing.T, flags string) *env {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))

	reqRepo := repository.NewAccessRequestRepository(db)
	swRepo := repository.NewSoftwareRepository(db)
	userRepo := repository.NewUserRepository(db)

	users := NewUserService(userRepo)
	users.hashCost = bcrypt.MinCost

	return &env{
		db:       db,
		requests: NewRequestService(reqRepo, swRepo, userRepo),
		catalog:  NewCatalogService(swRepo, reqRepo, featureflags.NewManager(flags)),
		users:    users,
	}
}

func (e *env) user(t *testing.T, username string, role models.Role) models.Actor {
	t.Helper()
	u, err := e.users.Provision(context.Background(), username, "secret1", role)
	require.NoError(t, err)
	return models.Actor{ID: u.ID, Role: u.Role}
}

func (e *env) software(t *testing.T, admin models.Actor, name string, levels ...string) *models.Software {
	t.Helper()
	if len(levels) == 0 {
		levels = []string{"Read", "Write"}
	}
	sw, err := e.catalog.Create(context.Background(), admin, CreateSoftwareInput{
		Name:         name,
		Description:  name + " system",
		AccessLevels: levels,
	})
	require.NoError(t, err)
	return sw
}

func (e *env) pendingCount(t *testing.T, userID, softwareID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&models.AccessRequest{}).
		Where("user_id = ? AND software_id = ? AND status = ?", userID, softwareID, models.StatusPending).
		Count(&n).Error)
	return n
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, models.ErrorCode(err), "unexpected error: %v", err)
}

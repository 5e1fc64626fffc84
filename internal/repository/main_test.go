package repository

import (
	"testing"
	"time"

	"accessdesk/internal/database"
	"accessdesk/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupSQLite returns a private in-memory database with the full schema.
// A single connection keeps every query on the same in-memory database.
func setupSQLite(t *testing.T) *gorm.DB {
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
	return db
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

func seedUser(t *testing.T, db *gorm.DB, username string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{Username: username, Password: "hash", Role: role}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedSoftware(t *testing.T, db *gorm.DB, name string, levels ...models.AccessLevel) *models.Software {
	t.Helper()
	if len(levels) == 0 {
		levels = []models.AccessLevel{models.AccessLevelRead, models.AccessLevelWrite}
	}
	sw := &models.Software{Name: name, Description: name + " system", AccessLevels: levels}
	require.NoError(t, db.Create(sw).Error)
	return sw
}

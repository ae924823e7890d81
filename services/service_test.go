// services/service_test.go
package services

import (
	"fmt"
	"testing"

	"chess-match-system/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory sqlite database with the full schema.
// Connections are capped at one so concurrent transitions serialize the same
// way they would against a single Postgres row.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Invitation{},
		&models.ChallengeRequest{},
		&models.Game{},
		&models.Move{},
	))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	email := name + "@example.com"
	hash := "$2a$10$notarealhashnotarealhashnotarealhash"
	user := models.User{Name: name, Email: &email, Password: &hash}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func softDeleteUser(t *testing.T, db *gorm.DB, id uint) {
	t.Helper()
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", id).
		Updates(map[string]interface{}{"deleted": true, "email": nil, "password": nil}).Error)
}

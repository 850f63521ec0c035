// Package storagetest opens throwaway SQLite-backed storage for tests.
package storagetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/bquezada-bit/Silvacentinel/internal/models"
	"github.com/bquezada-bit/Silvacentinel/internal/storage"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New returns a migrated, category-seeded storage service without Redis.
func New(t testing.TB) *storage.Service {
	t.Helper()

	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "test.db"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "open test db")
	require.NoError(t, storage.Migrate(db))

	s := storage.NewStorageService(db, nil, nil)
	require.NoError(t, s.SeedCategories(context.Background()))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return s
}

// Password is the plain-text password of every account made by Account.
const Password = "bosque2024"

// Account inserts an active account with the given role.
func Account(t testing.TB, s *storage.Service, username string, role models.Role) *models.Account {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)

	a := &models.Account{
		Username:     username,
		Email:        username + "@silva.cl",
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	}
	require.NoError(t, s.CreateAccount(context.Background(), a))
	return a
}

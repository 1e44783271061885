package database

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/astacala/rescue-api/internal/models"
)

func TestConnectRejectsUnknownDriver(t *testing.T) {
	_, err := Connect("oracle", "dsn")
	require.ErrorContains(t, err, "unsupported database driver")
}

func TestConnectRequiresDSN(t *testing.T) {
	_, err := Connect("postgres", "")
	require.Error(t, err)
}

func TestConnectSQLiteAndMigrate(t *testing.T) {
	db, err := Connect("sqlite", "file::memory:")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	require.True(t, db.Migrator().HasTable(&models.DisasterReport{}))
	require.True(t, db.Migrator().HasTable("publication_disaster_reports"))
}

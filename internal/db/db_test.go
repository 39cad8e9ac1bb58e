package db

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikasavnish/heirloom/internal/config"
	"github.com/vikasavnish/heirloom/internal/models"
)

func TestConnectSQLiteAndMigrate(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := config.DatabaseConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "heirloom.db"),
	}
	conn, err := Connect(cfg, log)
	require.NoError(t, err)
	require.NoError(t, Migrate(conn))

	for _, table := range []string{"trees", "people", "families", "children", "events", "family_events"} {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}
	assert.True(t, conn.Migrator().HasIndex(&models.Child{}, "idx_child_person"))
}

func TestConnectRejectsUnknownDriver(t *testing.T) {
	_, err := Connect(config.DatabaseConfig{Driver: "oracle"}, logrus.New())
	assert.ErrorContains(t, err, `unsupported database driver "oracle"`)
}

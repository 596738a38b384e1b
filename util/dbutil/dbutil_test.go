package dbutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupDatabaseSqlite(t *testing.T) {
	db, err := SetupDatabase("sqlite://:memory:", 40)
	require.NoError(t, err)

	sqldb, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqldb.Ping())
}

func TestSetupDatabaseRejectsUnknownScheme(t *testing.T) {
	_, err := SetupDatabase("mysql://nope", 40)
	assert.Error(t, err)
}

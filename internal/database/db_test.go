package database

import (
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMySQLConfigRoundTrips(t *testing.T) {
	dsn := mysqlConfig("portal", "p@ss:word", "db.internal", "3306", "aligner").FormatDSN()

	got, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "portal", got.User)
	assert.Equal(t, "p@ss:word", got.Passwd)
	assert.Equal(t, "tcp", got.Net)
	assert.Equal(t, "db.internal:3306", got.Addr)
	assert.Equal(t, "aligner", got.DBName)
	assert.True(t, got.ParseTime)
	assert.True(t, got.ClientFoundRows)
	assert.Equal(t, time.UTC, got.Loc)
	assert.Equal(t, "utf8mb4_unicode_ci", got.Collation)
}

func TestMySQLConfigWithoutPassword(t *testing.T) {
	got, err := mysql.ParseDSN(mysqlConfig("root", "", "localhost", "3307", "aligner").FormatDSN())
	require.NoError(t, err)
	assert.Equal(t, "root", got.User)
	assert.Empty(t, got.Passwd)
	assert.Equal(t, "localhost:3307", got.Addr)
}

package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	_ "modernc.org/sqlite"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "mig.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func tableNames(t *testing.T, db *sql.DB) []string {
	t.Helper()
	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name IN ('sessions', 'registrations') ORDER BY name`)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	return names
}

func TestUpCreatesSchemaOnce(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	db := openDB(t)

	require.NoError(t, Up(context.Background(), db, zap.New(core)))
	assert.Equal(t, []string{"registrations", "sessions"}, tableNames(t, db))
	require.Equal(t, 1, logs.FilterMessage("applied migration").Len())

	require.NoError(t, Up(context.Background(), db, zap.New(core)))
	assert.Equal(t, 1, logs.FilterMessage("applied migration").Len(), "second run applies nothing")
}

func TestUpConcurrentDatabases(t *testing.T) {
	for i := 0; i < 8; i++ {
		t.Run(fmt.Sprintf("db%d", i), func(t *testing.T) {
			t.Parallel()
			db := openDB(t)

			var log *zap.Logger
			if i%2 == 0 {
				log = zap.NewNop()
			}
			require.NoError(t, Up(context.Background(), db, log))
			assert.Equal(t, []string{"registrations", "sessions"}, tableNames(t, db))
		})
	}
}

package state

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ts4z/faablab/he"
	"github.com/ts4z/faablab/model"
)

// Set FAABLAB_TEST_DB_URL to a scratch Postgres database to run these.
func testDB(t *testing.T) *DBStorage {
	url := os.Getenv("FAABLAB_TEST_DB_URL")
	if url == "" {
		t.Skip("FAABLAB_TEST_DB_URL not set")
	}
	db, err := sql.Open("pgx", url)
	require.NoError(t, err)
	s := NewDBStorage(db)
	t.Cleanup(s.Close)
	require.NoError(t, s.EnsureSchema(context.Background()))
	return s
}

func TestSchemaStatements(t *testing.T) {
	assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS preferences")
	assert.Contains(t, schema, "optimistic_lock")

	stmts := splitStatements(schema)
	var trigger string
	for _, s := range stmts {
		if strings.HasPrefix(s, "CREATE OR REPLACE FUNCTION notify_preferences_changes") {
			trigger = s
		}
	}
	require.NotEmpty(t, trigger)
	assert.True(t, strings.HasSuffix(trigger, "LANGUAGE plpgsql"), trigger)
	assert.Contains(t, trigger, "pg_notify('preferences_changes'")
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements("SELECT 1; ;\nCREATE FUNCTION f() AS $$ BEGIN x; y; END; $$ LANGUAGE plpgsql;\nSELECT 2")
	assert.Equal(t, []string{
		"SELECT 1",
		"CREATE FUNCTION f() AS $$ BEGIN x; y; END; $$ LANGUAGE plpgsql",
		"SELECT 2",
	}, got)
}

func TestPreferencesRoundTrip(t *testing.T) {
	s := testDB(t)
	ctx := context.Background()
	visitor := uuid.New()
	t.Cleanup(func() { s.DeletePreferences(ctx, visitor) })

	_, err := s.FetchPreferences(ctx, visitor)
	require.Error(t, err)
	assert.True(t, he.IsNotFound(err))

	p := model.DefaultPreferences()
	p.League.Budget = 1000
	p.Reveal(42)
	require.NoError(t, s.SavePreferences(ctx, visitor, p))
	assert.Equal(t, int64(1), p.OptimisticLock)

	got, err := s.FetchPreferences(ctx, visitor)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	got.Reveal(43)
	require.NoError(t, s.SavePreferences(ctx, visitor, got))
	assert.Equal(t, int64(2), got.OptimisticLock)

	// p is now stale.
	err = s.SavePreferences(ctx, visitor, p)
	assert.Equal(t, 409, he.CodeOf(err, 0))

	// A second insert for the same visitor loses too.
	err = s.SavePreferences(ctx, visitor, model.DefaultPreferences())
	assert.Equal(t, 409, he.CodeOf(err, 0))
}

func TestPurgeStalePreferences(t *testing.T) {
	s := testDB(t)
	ctx := context.Background()
	visitor := uuid.New()
	require.NoError(t, s.SavePreferences(ctx, visitor, model.DefaultPreferences()))

	n, err := s.PurgeStalePreferences(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(0))
	_, err = s.FetchPreferences(ctx, visitor)
	require.NoError(t, err)

	_, err = s.PurgeStalePreferences(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	_, err = s.FetchPreferences(ctx, visitor)
	assert.True(t, he.IsNotFound(err))
}

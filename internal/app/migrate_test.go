package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o600))
}

func TestLoadScriptsOrdersSQLFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "0002_likes.sql", "CREATE TABLE likes ();")
	writeFile(t, dir, "0001_init.sql", "CREATE TABLE users ();")
	writeFile(t, dir, "README.md", "notes")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "0003_dir.sql"), 0o700))

	scripts, err := loadScripts(dir)
	require.NoError(t, err)
	require.Len(t, scripts, 2)
	assert.Equal(t, "0001_init.sql", scripts[0].name)
	assert.Equal(t, "0002_likes.sql", scripts[1].name)
	assert.Len(t, scripts[0].checksum, 64)
	assert.NotEqual(t, scripts[0].checksum, scripts[1].checksum)
}

func TestPlanMigrations(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "0001_init.sql", "CREATE TABLE users ();")
	writeFile(t, dir, "0002_likes.sql", "CREATE TABLE likes ();")
	scripts, err := loadScripts(dir)
	require.NoError(t, err)

	applied := map[string]appliedVersion{"0001_init.sql": {checksum: scripts[0].checksum}}
	pending, err := planMigrations(scripts, applied)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "0002_likes.sql", pending[0].name)

	applied["0001_init.sql"] = appliedVersion{checksum: "edited"}
	_, err = planMigrations(scripts, applied)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0001_init.sql changed")
}

func TestWriteStatus(t *testing.T) {
	at := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	scripts := []script{
		{name: "0001_init.sql", checksum: "a"},
		{name: "0002_likes.sql", checksum: "b"},
		{name: "0003_tweets.sql", checksum: "c"},
	}
	applied := map[string]appliedVersion{
		"0001_init.sql":  {checksum: "a", appliedAt: at},
		"0002_likes.sql": {checksum: "old", appliedAt: at},
		"0000_gone.sql":  {checksum: "z", appliedAt: at},
	}

	var out bytes.Buffer
	require.NoError(t, writeStatus(&out, scripts, applied))

	want := "[x] 0001_init.sql  applied 2026-10-01T12:00:00Z\n" +
		"[!] 0002_likes.sql  changed since applied 2026-10-01T12:00:00Z\n" +
		"[ ] 0003_tweets.sql\n" +
		"[?] 0000_gone.sql  applied but no longer on disk\n" +
		"3 applied, 1 pending\n"
	assert.Equal(t, want, out.String())
}

func TestSeedFileName(t *testing.T) {
	assert.Equal(t, "dev_seed.sql", seedFileName("dev"))
	assert.Equal(t, "custom.sql", seedFileName("custom.sql"))
}

func TestRetryBackoffIsCapped(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, retryBackoff(1))
	assert.Equal(t, 200*time.Millisecond, retryBackoff(2))
	assert.Equal(t, scriptMaxBackoff, retryBackoff(10))
	assert.Equal(t, scriptMaxBackoff, retryBackoff(80))
}

func TestShouldRetry(t *testing.T) {
	assert.True(t, shouldRetry(&pgconn.PgError{Code: "40001"}))
	assert.True(t, shouldRetry(&pgconn.PgError{Code: "40P01"}))
	assert.True(t, shouldRetry(pgx.ErrTxClosed))
	assert.False(t, shouldRetry(&pgconn.PgError{Code: "42P01"}))
	assert.False(t, shouldRetry(errors.New("syntax error")))
	assert.False(t, shouldRetry(nil))
}

type fakeTx struct {
	pgx.Tx
	commitErr error
	commits   *int
	rollbacks *int
}

func (f fakeTx) Commit(context.Context) error {
	*f.commits++
	return f.commitErr
}

func (f fakeTx) Rollback(context.Context) error {
	*f.rollbacks++
	return nil
}

type fakeStarter struct {
	begins    int
	commits   int
	rollbacks int
	commitErr []error
}

func (f *fakeStarter) BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error) {
	var commitErr error
	if f.begins < len(f.commitErr) {
		commitErr = f.commitErr[f.begins]
	}
	f.begins++
	return fakeTx{commitErr: commitErr, commits: &f.commits, rollbacks: &f.rollbacks}, nil
}

func TestInTxWithRetryRetriesTransientErrors(t *testing.T) {
	starter := &fakeStarter{}
	calls := 0
	err := inTxWithRetry(context.Background(), starter, "migration 0001_init.sql", func(pgx.Tx) error {
		calls++
		if calls == 1 {
			return &pgconn.PgError{Code: "40001"}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, starter.begins)
	assert.Equal(t, 1, starter.rollbacks)
	assert.Equal(t, 1, starter.commits)
}

func TestInTxWithRetryStopsOnPermanentErrors(t *testing.T) {
	starter := &fakeStarter{}
	err := inTxWithRetry(context.Background(), starter, "seed dev_seed.sql", func(pgx.Tx) error {
		return &pgconn.PgError{Code: "42601", Message: "syntax error"}
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed dev_seed.sql")
	assert.Equal(t, 1, starter.begins)
	assert.Equal(t, 0, starter.commits)
}

func TestInTxWithRetryGivesUpAfterMaxAttempts(t *testing.T) {
	conflict := &pgconn.PgError{Code: "40001"}
	starter := &fakeStarter{commitErr: []error{conflict, conflict, conflict}}
	err := inTxWithRetry(context.Background(), starter, "migration 0002_likes.sql", func(pgx.Tx) error {
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, conflict)
	assert.Equal(t, scriptMaxAttempts, starter.begins)
}

func TestRunMigrationsRejectsUnknownCommands(t *testing.T) {
	require.Error(t, runMigrations(context.Background(), []string{"down"}))
	require.Error(t, runMigrations(context.Background(), []string{"sideways"}))
}

package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/db"
)

const (
	schemaVersionTable = "vidtube_schema_versions"

	scriptMaxAttempts = 3
	scriptBaseBackoff = 100 * time.Millisecond
	scriptMaxBackoff  = 3 * time.Second
)

var retryablePgErrorCodes = map[string]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"55P03": {}, // lock_not_available
}

// script is one SQL file from the migrations or seeds directory.
type script struct {
	name     string
	contents string
	checksum string
}

// appliedVersion is a row of the schema version table.
type appliedVersion struct {
	checksum  string
	appliedAt time.Time
}

func runMigrations(ctx context.Context, args []string) error {
	command := "up"
	if len(args) > 0 {
		command = args[0]
	}
	switch command {
	case "up", "status":
	case "down":
		return errors.New("down migrations are not supported")
	default:
		return fmt.Errorf("unknown migrate command %q", command)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	dir, err := resolveDir(cfg.MigrationDir)
	if err != nil {
		return err
	}
	scripts, err := loadScripts(dir)
	if err != nil {
		return err
	}

	return withConn(ctx, cfg, func(conn *pgxpool.Conn) error {
		if _, err := conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+schemaVersionTable+` (
			version TEXT PRIMARY KEY,
			checksum TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
			return fmt.Errorf("ensure %s table: %w", schemaVersionTable, err)
		}

		applied, err := loadApplied(ctx, conn)
		if err != nil {
			return err
		}

		if command == "status" {
			return writeStatus(os.Stdout, scripts, applied)
		}

		pending, err := planMigrations(scripts, applied)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			fmt.Println("schema is up to date")
			return nil
		}
		for _, s := range pending {
			err := inTxWithRetry(ctx, conn, "migration "+s.name, func(tx pgx.Tx) error {
				if _, err := tx.Exec(ctx, s.contents); err != nil {
					return fmt.Errorf("apply: %w", err)
				}
				if _, err := tx.Exec(ctx, `INSERT INTO `+schemaVersionTable+` (version, checksum) VALUES ($1, $2)`, s.name, s.checksum); err != nil {
					return fmt.Errorf("record: %w", err)
				}
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Printf("applied migration %s\n", s.name)
		}
		return nil
	})
}

func runSeed(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("expected seed name (e.g. dev)")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	dir, err := resolveDir(cfg.SeedDir)
	if err != nil {
		return err
	}
	seed, err := loadScript(dir, seedFileName(args[0]))
	if err != nil {
		return err
	}

	return withConn(ctx, cfg, func(conn *pgxpool.Conn) error {
		err := inTxWithRetry(ctx, conn, "seed "+seed.name, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, seed.contents)
			return err
		})
		if err != nil {
			return err
		}
		fmt.Printf("applied seed %s\n", seed.name)
		return nil
	})
}

func withConn(ctx context.Context, cfg config.Config, fn func(conn *pgxpool.Conn) error) error {
	pool, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DatabaseName)
	if err != nil {
		return err
	}
	defer pool.Close()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return fn(conn)
}

func resolveDir(dir string) (string, error) {
	if filepath.IsAbs(dir) {
		return dir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("determine working directory: %w", err)
	}
	return filepath.Join(wd, dir), nil
}

func seedFileName(name string) string {
	if strings.HasSuffix(name, ".sql") {
		return name
	}
	return name + "_seed.sql"
}

func loadScript(dir, name string) (script, error) {
	contents, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return script{}, fmt.Errorf("read %s: %w", name, err)
	}
	sum := sha256.Sum256(contents)
	return script{name: name, contents: string(contents), checksum: hex.EncodeToString(sum[:])}, nil
}

// loadScripts reads every .sql file in dir ordered by name.
func loadScripts(dir string) ([]script, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".sql" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	scripts := make([]script, 0, len(names))
	for _, name := range names {
		s, err := loadScript(dir, name)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, s)
	}
	return scripts, nil
}

func loadApplied(ctx context.Context, conn *pgxpool.Conn) (map[string]appliedVersion, error) {
	rows, err := conn.Query(ctx, `SELECT version, checksum, applied_at FROM `+schemaVersionTable)
	if err != nil {
		return nil, fmt.Errorf("fetch applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]appliedVersion)
	for rows.Next() {
		var version string
		var row appliedVersion
		if err := rows.Scan(&version, &row.checksum, &row.appliedAt); err != nil {
			return nil, fmt.Errorf("scan applied migration: %w", err)
		}
		applied[version] = row
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied migrations: %w", err)
	}
	return applied, nil
}

// planMigrations returns the scripts still to run. An applied script whose
// file has been edited since stops the run.
func planMigrations(scripts []script, applied map[string]appliedVersion) ([]script, error) {
	var pending []script
	for _, s := range scripts {
		row, ok := applied[s.name]
		if !ok {
			pending = append(pending, s)
			continue
		}
		if row.checksum != s.checksum {
			return nil, fmt.Errorf("migration %s changed after it was applied", s.name)
		}
	}
	return pending, nil
}

func writeStatus(w io.Writer, scripts []script, applied map[string]appliedVersion) error {
	var done, pending int
	seen := make(map[string]struct{}, len(scripts))
	for _, s := range scripts {
		seen[s.name] = struct{}{}
		row, ok := applied[s.name]
		switch {
		case !ok:
			pending++
			fmt.Fprintf(w, "[ ] %s\n", s.name)
		case row.checksum != s.checksum:
			done++
			fmt.Fprintf(w, "[!] %s  changed since applied %s\n", s.name, row.appliedAt.UTC().Format(time.RFC3339))
		default:
			done++
			fmt.Fprintf(w, "[x] %s  applied %s\n", s.name, row.appliedAt.UTC().Format(time.RFC3339))
		}
	}

	var missing []string
	for name := range applied {
		if _, ok := seen[name]; !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	for _, name := range missing {
		fmt.Fprintf(w, "[?] %s  applied but no longer on disk\n", name)
	}

	_, err := fmt.Fprintf(w, "%d applied, %d pending\n", done+len(missing), pending)
	return err
}

type txStarter interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// inTxWithRetry runs fn in a serializable transaction, retrying transient
// conflicts with capped exponential backoff.
func inTxWithRetry(ctx context.Context, conn txStarter, label string, fn func(tx pgx.Tx) error) error {
	var lastErr error
	for attempt := 0; attempt < scriptMaxAttempts; attempt++ {
		if attempt > 0 {
			fmt.Printf("transient error in %s (attempt %d/%d): %v\n", label, attempt, scriptMaxAttempts, lastErr)
			timer := time.NewTimer(retryBackoff(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		tx, err := conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
		if err != nil {
			return fmt.Errorf("begin transaction for %s: %w", label, err)
		}

		if err := fn(tx); err != nil {
			_ = tx.Rollback(ctx)
			if shouldRetry(err) {
				lastErr = err
				continue
			}
			return fmt.Errorf("%s: %w", label, err)
		}

		if err := tx.Commit(ctx); err != nil {
			_ = tx.Rollback(ctx)
			if shouldRetry(err) {
				lastErr = err
				continue
			}
			return fmt.Errorf("commit %s: %w", label, err)
		}
		return nil
	}

	return fmt.Errorf("%s: exceeded %d attempts: %w", label, scriptMaxAttempts, lastErr)
}

func retryBackoff(attempt int) time.Duration {
	if attempt > 16 {
		return scriptMaxBackoff
	}
	backoff := scriptBaseBackoff << (attempt - 1)
	if backoff > scriptMaxBackoff || backoff <= 0 {
		return scriptMaxBackoff
	}
	return backoff
}

func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, pgx.ErrTxClosed) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		_, ok := retryablePgErrorCodes[pgErr.Code]
		return ok
	}
	return false
}

package database

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type MigrationRecord struct {
	Version   string
	Name      string
	AppliedAt time.Time
}

// Migration is one "<version>_<name>.sql" file.
type Migration struct {
	Version string
	Name    string
	File    string
}

// PendingMigrations lists the .sql files in fsys in version order, skipping
// those whose version is in applied. Files not named "<version>_<name>.sql"
// are returned in skipped.
func PendingMigrations(fsys fs.FS, applied map[string]bool) (pending []Migration, skipped []string, err error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, nil, fmt.Errorf("read migrations: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, file := range files {
		parts := strings.SplitN(file, "_", 2)
		if len(parts) != 2 || parts[0] == "" {
			skipped = append(skipped, file)
			continue
		}
		if applied[parts[0]] {
			continue
		}
		pending = append(pending, Migration{
			Version: parts[0],
			Name:    strings.TrimSuffix(parts[1], ".sql"),
			File:    file,
		})
	}
	return pending, skipped, nil
}

func RunMigrations(ctx context.Context, db *pgxpool.Pool, fsys fs.FS, logger *zap.Logger) error {
	_, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS migrations (
			version VARCHAR(255) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	rows, err := db.Query(ctx, "SELECT version, name, applied_at FROM migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("list applied migrations: %w", err)
	}
	applied := make(map[string]bool)
	for rows.Next() {
		var record MigrationRecord
		if err := rows.Scan(&record.Version, &record.Name, &record.AppliedAt); err != nil {
			rows.Close()
			return fmt.Errorf("scan migration record: %w", err)
		}
		applied[record.Version] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate migration records: %w", err)
	}

	pending, skipped, err := PendingMigrations(fsys, applied)
	if err != nil {
		return err
	}
	for _, file := range skipped {
		logger.Warn("invalid migration file name", zap.String("file", file))
	}

	for _, m := range pending {
		content, err := fs.ReadFile(fsys, m.File)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", m.File, err)
		}

		logger.Info("applying migration", zap.String("version", m.Version), zap.String("name", m.Name))

		tx, err := db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.Exec(ctx, string(content)); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("apply migration %s: %w", m.File, err)
		}

		if _, err := tx.Exec(ctx,
			"INSERT INTO migrations (version, name, applied_at) VALUES ($1, $2, $3)",
			m.Version, m.Name, time.Now(),
		); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("record migration %s: %w", m.File, err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit migration %s: %w", m.File, err)
		}
	}

	if len(pending) > 0 {
		logger.Info("migrations applied", zap.Int("count", len(pending)))
	}
	return nil
}

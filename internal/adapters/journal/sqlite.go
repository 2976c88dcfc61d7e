package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kamal-hamza/lima-cli/internal/core/domain"
	"github.com/kamal-hamza/lima-cli/internal/core/ports"
)

// Journal records uploaded bundles in a local SQLite database so that
// bundles which were never imported can be found and pruned later
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

var _ ports.BundleJournal = (*Journal)(nil)

// Open opens (and migrates) the journal at dbPath
func Open(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping journal: %w", err)
	}

	j := &Journal{db: db, now: time.Now}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

// Close closes the underlying database
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) migrate() error {
	if _, err := j.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("migrate journal: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS bundles (
	id           TEXT PRIMARY KEY,
	files        TEXT NOT NULL DEFAULT '[]',
	failed_files TEXT NOT NULL DEFAULT '[]',
	status       TEXT NOT NULL,
	project_id   TEXT NOT NULL DEFAULT '',
	created_at   INTEGER NOT NULL,
	updated_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_bundles_status ON bundles(status, created_at);
`

// Record stores a freshly uploaded bundle as staged
func (j *Journal) Record(ctx context.Context, bundle domain.Bundle) error {
	files, err := json.Marshal(nonNil(bundle.Files))
	if err != nil {
		return fmt.Errorf("encode files: %w", err)
	}
	failed, err := json.Marshal(nonNil(bundle.FailedFiles))
	if err != nil {
		return fmt.Errorf("encode failed files: %w", err)
	}

	now := j.now().UnixMilli()
	_, err = j.db.ExecContext(ctx, `
		INSERT INTO bundles (id, files, failed_files, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			files = excluded.files,
			failed_files = excluded.failed_files,
			updated_at = excluded.updated_at`,
		bundle.ID, string(files), string(failed), string(domain.BundleStaged), now, now)
	if err != nil {
		return fmt.Errorf("record bundle %s: %w", bundle.ID, err)
	}
	return nil
}

// MarkConsumed records the project a bundle was imported into
func (j *Journal) MarkConsumed(ctx context.Context, bundleID, projectID string) error {
	return j.setStatus(ctx, bundleID, domain.BundleConsumed, projectID)
}

// MarkDiscarded records that a bundle was deleted on the server
func (j *Journal) MarkDiscarded(ctx context.Context, bundleID string) error {
	return j.setStatus(ctx, bundleID, domain.BundleDiscarded, "")
}

func (j *Journal) setStatus(ctx context.Context, id string, status domain.BundleStatus, projectID string) error {
	res, err := j.db.ExecContext(ctx, `
		UPDATE bundles
		SET status = ?, project_id = CASE WHEN ? = '' THEN project_id ELSE ? END, updated_at = ?
		WHERE id = ?`,
		string(status), projectID, projectID, j.now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("update bundle %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update bundle %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("bundle not journaled: %s", id)
	}
	return nil
}

// List returns bundles in creation order. An empty status returns all.
func (j *Journal) List(ctx context.Context, status domain.BundleStatus) ([]domain.BundleRecord, error) {
	query := `SELECT id, files, failed_files, status, project_id, created_at, updated_at FROM bundles`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at, id`
	return j.query(ctx, query, args...)
}

// Staged returns staged bundles created at least olderThan ago
func (j *Journal) Staged(ctx context.Context, olderThan time.Duration) ([]domain.BundleRecord, error) {
	cutoff := j.now().Add(-olderThan).UnixMilli()
	return j.query(ctx, `
		SELECT id, files, failed_files, status, project_id, created_at, updated_at
		FROM bundles
		WHERE status = ? AND created_at <= ?
		ORDER BY created_at, id`,
		string(domain.BundleStaged), cutoff)
}

func (j *Journal) query(ctx context.Context, query string, args ...any) ([]domain.BundleRecord, error) {
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bundles: %w", err)
	}
	defer rows.Close()

	var out []domain.BundleRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func scanRecord(scanner interface{ Scan(...any) error }) (*domain.BundleRecord, error) {
	var (
		r                domain.BundleRecord
		files, failed    string
		status           string
		created, updated int64
	)
	if err := scanner.Scan(&r.ID, &files, &failed, &status, &r.ProjectID, &created, &updated); err != nil {
		return nil, fmt.Errorf("scan bundle: %w", err)
	}
	if err := json.Unmarshal([]byte(files), &r.Files); err != nil {
		return nil, fmt.Errorf("decode files of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(failed), &r.FailedFiles); err != nil {
		return nil, fmt.Errorf("decode failed files of %s: %w", r.ID, err)
	}
	r.Status = domain.BundleStatus(status)
	r.CreatedAt = time.UnixMilli(created)
	r.UpdatedAt = time.UnixMilli(updated)
	return &r, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

package mountledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	openStatuses = "('mounted', 'release_failed')"
	entryColumns = "id, run_id, principal_id, mount_name, hive_path, status, COALESCE(detail, ''), mounted_at, COALESCE(released_at, '')"
)

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		if lastErr = op(); lastErr == nil || !isSQLiteBusy(lastErr) {
			return lastErr
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = min(delay*2, busyRetryMaxBackoff)
	}
	return lastErr
}

func (l *Ledger) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = l.db.ExecContext(ctx, query, args...)
		return execErr
	})
	return res, err
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Mounted records that this run loaded a hive under mountName.
func (l *Ledger) Mounted(ctx context.Context, principalID, mountName, hivePath string) error {
	_, err := l.exec(ctx,
		`INSERT INTO mounts (run_id, principal_id, mount_name, hive_path, status, mounted_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		l.runID, principalID, mountName, hivePath, string(StatusMounted), now(),
	)
	if err != nil {
		return fmt.Errorf("record mount %s: %w", mountName, err)
	}
	return nil
}

// Released closes this run's open row for mountName. A non-nil releaseErr
// leaves the row open as release_failed so the next run can recover it.
func (l *Ledger) Released(ctx context.Context, mountName string, releaseErr error) error {
	status, detail, releasedAt := StatusReleased, "", any(now())
	if releaseErr != nil {
		status, detail, releasedAt = StatusReleaseFailed, releaseErr.Error(), nil
	}
	_, err := l.exec(ctx,
		`UPDATE mounts SET status = ?, detail = ?, released_at = ?
         WHERE run_id = ? AND mount_name = ? AND status IN `+openStatuses,
		string(status), nullable(detail), releasedAt, l.runID, mountName,
	)
	if err != nil {
		return fmt.Errorf("record release %s: %w", mountName, err)
	}
	return nil
}

// Claimed reports whether any run, this one included, holds an open row for
// mountName. A loaded hive without one belongs to the OS.
func (l *Ledger) Claimed(ctx context.Context, mountName string) (bool, error) {
	var count int
	err := retryOnBusy(ctx, func() error {
		return l.db.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM mounts WHERE mount_name = ? AND status IN `+openStatuses,
			mountName,
		).Scan(&count)
	})
	if err != nil {
		return false, fmt.Errorf("query open mount %s: %w", mountName, err)
	}
	return count > 0, nil
}

// Adopt takes ownership of an open mount. This run's own release_failed row
// is reopened as mounted; rows from other runs are abandoned and a fresh row
// is recorded for this run.
func (l *Ledger) Adopt(ctx context.Context, principalID, mountName, hivePath string) error {
	res, err := l.exec(ctx,
		`UPDATE mounts SET status = ?, detail = NULL, released_at = NULL
         WHERE mount_name = ? AND run_id = ? AND status IN `+openStatuses,
		string(StatusMounted), mountName, l.runID,
	)
	if err != nil {
		return fmt.Errorf("reclaim mount %s: %w", mountName, err)
	}
	reclaimed, _ := res.RowsAffected()

	if _, err := l.exec(ctx,
		`UPDATE mounts SET status = ?, detail = ?, released_at = ?
         WHERE mount_name = ? AND run_id <> ? AND status IN `+openStatuses,
		string(StatusAbandoned), "adopted by run "+l.runID, now(), mountName, l.runID,
	); err != nil {
		return fmt.Errorf("adopt mount %s: %w", mountName, err)
	}
	if reclaimed > 0 {
		return nil
	}
	return l.Mounted(ctx, principalID, mountName, hivePath)
}

// OpenEntries lists rows from earlier runs that still claim a loaded hive.
func (l *Ledger) OpenEntries(ctx context.Context) ([]Entry, error) {
	return l.query(ctx,
		`SELECT `+entryColumns+` FROM mounts WHERE run_id <> ? AND status IN `+openStatuses+` ORDER BY id`,
		l.runID,
	)
}

// List returns the most recent rows, newest first. limit <= 0 means all.
func (l *Ledger) List(ctx context.Context, onlyOpen bool, limit int) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM mounts`
	if onlyOpen {
		query += ` WHERE status IN ` + openStatuses
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	return l.query(ctx, query)
}

// MarkRecovered closes a row after its hive was unloaded by recovery.
func (l *Ledger) MarkRecovered(ctx context.Context, id int64, detail string) error {
	return l.close(ctx, id, StatusRecovered, detail)
}

// MarkAbandoned closes a row whose hive is no longer loaded.
func (l *Ledger) MarkAbandoned(ctx context.Context, id int64, detail string) error {
	return l.close(ctx, id, StatusAbandoned, detail)
}

func (l *Ledger) close(ctx context.Context, id int64, status Status, detail string) error {
	res, err := l.exec(ctx,
		`UPDATE mounts SET status = ?, detail = ?, released_at = ? WHERE id = ?`,
		string(status), nullable(detail), now(), id,
	)
	if err != nil {
		return fmt.Errorf("update mount %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update mount %d: %w", id, sql.ErrNoRows)
	}
	return nil
}

func (l *Ledger) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	var entries []Entry
	err := retryOnBusy(ctx, func() error {
		entries = entries[:0]
		rows, err := l.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			entry, err := scanEntry(rows)
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("query mounts: %w", err)
	}
	return entries, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		entry             Entry
		status            string
		mounted, released string
	)
	if err := rows.Scan(&entry.ID, &entry.RunID, &entry.PrincipalID, &entry.MountName,
		&entry.HivePath, &status, &entry.Detail, &mounted, &released); err != nil {
		return Entry{}, fmt.Errorf("scan mount: %w", err)
	}
	entry.Status = Status(status)
	entry.MountedAt = parseTime(mounted)
	entry.ReleasedAt = parseTime(released)
	return entry, nil
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullable(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

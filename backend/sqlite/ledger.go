package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/mwantia/histfs/data"
	"github.com/mwantia/histfs/data/errors"
)

func (sb *SQLiteBackend) LoadLedger(ctx context.Context, key string) ([]*data.Version, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	db, err := sb.conn()
	if err != nil {
		return nil, err
	}

	return loadVersions(ctx, db, key)
}

func (sb *SQLiteBackend) AppendLedger(ctx context.Context, key string, v *data.Version) error {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	db, err := sb.conn()
	if err != nil {
		return errors.Persistence(err, key)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Persistence(err, key)
	}
	defer tx.Rollback()

	var latest sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(number) FROM histfs_versions WHERE key = ?`, key).Scan(&latest); err != nil {
		return errors.Persistence(err, key)
	}

	next := uint64(latest.Int64) + 1
	if v.Number == 0 {
		v.Number = next
	} else if v.Number != next {
		return errors.Persistence(errors.VersionConflict(key, next, v.Number), key)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO histfs_versions (key, number, created_at, size, location)
		VALUES (?, ?, ?, ?, ?)
	`, key, int64(v.Number), v.CreatedAt.Unix(), v.Size, v.Location); err != nil {
		return errors.Persistence(err, key)
	}

	if err := tx.Commit(); err != nil {
		return errors.Persistence(err, key)
	}
	return nil
}

func (sb *SQLiteBackend) ReplaceLedger(ctx context.Context, key string, versions []*data.Version) error {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	db, err := sb.conn()
	if err != nil {
		return errors.Persistence(err, key)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Persistence(err, key)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM histfs_versions WHERE key = ?`, key); err != nil {
		return errors.Persistence(err, key)
	}
	for _, v := range versions {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO histfs_versions (key, number, created_at, size, location)
			VALUES (?, ?, ?, ?, ?)
		`, key, int64(v.Number), v.CreatedAt.Unix(), v.Size, v.Location); err != nil {
			return errors.Persistence(err, key)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Persistence(err, key)
	}
	return nil
}

func (sb *SQLiteBackend) ListLedgers(ctx context.Context) ([]string, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	db, err := sb.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT DISTINCT key FROM histfs_versions ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	return keys, rows.Err()
}

func loadVersions(ctx context.Context, db *sql.DB, key string) ([]*data.Version, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT number, created_at, size, location
		FROM histfs_versions WHERE key = ? ORDER BY number
	`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	versions := []*data.Version{}
	for rows.Next() {
		var number, created, size int64
		var location string
		if err := rows.Scan(&number, &created, &size, &location); err != nil {
			return nil, err
		}
		versions = append(versions, &data.Version{
			Number:    uint64(number),
			CreatedAt: time.Unix(created, 0),
			Size:      size,
			Location:  location,
		})
	}

	return versions, rows.Err()
}

package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mwantia/histfs/data"
	"github.com/mwantia/histfs/data/errors"
)

func (pb *PostgresBackend) LoadLedger(ctx context.Context, key string) ([]*data.Version, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	pool, err := pb.acquire()
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, `
		SELECT number, created_at, size, location
		FROM histfs_versions WHERE key = $1 ORDER BY number
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

func (pb *PostgresBackend) AppendLedger(ctx context.Context, key string, v *data.Version) error {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	pool, err := pb.acquire()
	if err != nil {
		return errors.Persistence(err, key)
	}

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return errors.Persistence(err, key)
	}
	defer tx.Rollback(ctx)

	var latest int64
	if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(number), 0) FROM histfs_versions WHERE key = $1`, key).Scan(&latest); err != nil {
		return errors.Persistence(err, key)
	}

	next := uint64(latest) + 1
	if v.Number == 0 {
		v.Number = next
	} else if v.Number != next {
		return errors.Persistence(errors.VersionConflict(key, next, v.Number), key)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO histfs_versions (key, number, created_at, size, location)
		VALUES ($1, $2, $3, $4, $5)
	`, key, int64(v.Number), v.CreatedAt.Unix(), v.Size, v.Location); err != nil {
		return errors.Persistence(err, key)
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Persistence(err, key)
	}
	return nil
}

func (pb *PostgresBackend) ReplaceLedger(ctx context.Context, key string, versions []*data.Version) error {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	pool, err := pb.acquire()
	if err != nil {
		return errors.Persistence(err, key)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return errors.Persistence(err, key)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM histfs_versions WHERE key = $1`, key); err != nil {
		return errors.Persistence(err, key)
	}
	for _, v := range versions {
		if _, err := tx.Exec(ctx, `
			INSERT INTO histfs_versions (key, number, created_at, size, location)
			VALUES ($1, $2, $3, $4, $5)
		`, key, int64(v.Number), v.CreatedAt.Unix(), v.Size, v.Location); err != nil {
			return errors.Persistence(err, key)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Persistence(err, key)
	}
	return nil
}

func (pb *PostgresBackend) ListLedgers(ctx context.Context) ([]string, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	pool, err := pb.acquire()
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, `SELECT DISTINCT key FROM histfs_versions ORDER BY key`)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, pgx.RowTo[string])
}

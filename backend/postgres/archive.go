package postgres

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mwantia/histfs/data"
)

func (pb *PostgresBackend) PutBlob(ctx context.Context, key string, number uint64, createdAt time.Time, r io.Reader) (string, int64, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return "", int64(len(content)), err
	}

	pb.mu.RLock()
	defer pb.mu.RUnlock()

	pool, err := pb.acquire()
	if err != nil {
		return "", 0, err
	}

	id := data.NewID()
	if _, err := pool.Exec(ctx, `
		INSERT INTO histfs_blobs (id, key, number, created_at, size, content)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, key, int64(number), createdAt.Unix(), int64(len(content)), content); err != nil {
		return "", 0, err
	}

	return id, int64(len(content)), nil
}

func (pb *PostgresBackend) OpenBlob(ctx context.Context, location string) (io.ReadCloser, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	pool, err := pb.acquire()
	if err != nil {
		return nil, err
	}

	var content []byte
	if err := pool.QueryRow(ctx, `SELECT content FROM histfs_blobs WHERE id = $1`, location).Scan(&content); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, data.ErrNotExist
		}
		return nil, err
	}

	return io.NopCloser(bytes.NewReader(content)), nil
}

func (pb *PostgresBackend) DeleteBlob(ctx context.Context, location string) error {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	pool, err := pb.acquire()
	if err != nil {
		return err
	}

	tag, err := pool.Exec(ctx, `DELETE FROM histfs_blobs WHERE id = $1`, location)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return data.ErrNotExist
	}

	return nil
}

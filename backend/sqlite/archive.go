package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"time"

	"github.com/mwantia/histfs/data"
)

func (sb *SQLiteBackend) PutBlob(ctx context.Context, key string, number uint64, createdAt time.Time, r io.Reader) (string, int64, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return "", int64(len(content)), err
	}

	sb.mu.RLock()
	defer sb.mu.RUnlock()

	db, err := sb.conn()
	if err != nil {
		return "", 0, err
	}

	id := data.NewID()
	if _, err := db.ExecContext(ctx, `
		INSERT INTO histfs_blobs (id, key, number, created_at, size, content)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, key, int64(number), createdAt.Unix(), len(content), content); err != nil {
		return "", 0, err
	}

	return id, int64(len(content)), nil
}

func (sb *SQLiteBackend) OpenBlob(ctx context.Context, location string) (io.ReadCloser, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	db, err := sb.conn()
	if err != nil {
		return nil, err
	}

	var content []byte
	err = db.QueryRowContext(ctx, `SELECT content FROM histfs_blobs WHERE id = ?`, location).Scan(&content)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, data.ErrNotExist
		}
		return nil, err
	}

	return io.NopCloser(bytes.NewReader(content)), nil
}

func (sb *SQLiteBackend) DeleteBlob(ctx context.Context, location string) error {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	db, err := sb.conn()
	if err != nil {
		return err
	}

	result, err := db.ExecContext(ctx, `DELETE FROM histfs_blobs WHERE id = ?`, location)
	if err != nil {
		return err
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return data.ErrNotExist
	}

	return nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/doccollab/internal/apperrors"
)

// Any pgx connection, pool or transaction
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Durable credential store
// Every device (CLI installation) has its own set of keys
type Store struct {
	DB       DBTX
	DeviceID uuid.UUID
}

func New(db DBTX, deviceID uuid.UUID) (*Store, error) {
	if deviceID == uuid.Nil {
		return nil, errors.New("device id must be set")
	}
	return &Store{DB: db, DeviceID: deviceID}, nil
}

const getCredential = `-- name: GetCredential
SELECT value
FROM credentials
WHERE device_id = $1 AND key = $2
`

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	rows, _ := s.DB.Query(ctx, getCredential, s.DeviceID, key)
	value, err := pgx.CollectOneRow(rows, pgx.RowTo[string])

	switch {
	case err == nil:
		return value, nil
	case errors.Is(err, pgx.ErrNoRows):
		return "", apperrors.ErrCredentialNotFound
	default:
		return "", dbError(err)
	}
}

const setCredential = `-- name: SetCredential
INSERT INTO credentials (device_id, key, value, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (device_id, key) DO UPDATE
SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
`

func (s *Store) Set(ctx context.Context, key string, value string) error {
	_, err := s.DB.Exec(ctx, setCredential, s.DeviceID, key, value)
	if err != nil {
		return dbError(err)
	}
	return nil
}

const clearCredentials = `-- name: ClearCredentials
DELETE FROM credentials
WHERE device_id = $1
`

func (s *Store) Clear(ctx context.Context) error {
	_, err := s.DB.Exec(ctx, clearCredentials, s.DeviceID)
	if err != nil {
		return dbError(err)
	}
	return nil
}

// Connection problems and missing schema mean storage is unusable, not that the key is absent
func dbError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgerrcode.IsConnectionException(pgErr.Code) || pgErr.Code == pgerrcode.UndefinedTable) {
		return fmt.Errorf("db error: %w: %w", apperrors.ErrStorageUnavailable, err)
	}
	return fmt.Errorf("db error: %w", err)
}

package session

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var storageKeys = []string{KeyToken, KeyUser}

// PostgresStore keeps records in the client_storage table.
type PostgresStore struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

// NewPostgresStore creates a store. Rows older than ttl are ignored on load
// and removed by Purge; a zero ttl keeps them until logout.
func NewPostgresStore(pool *pgxpool.Pool, ttl time.Duration) *PostgresStore {
	return &PostgresStore{pool: pool, ttl: ttl}
}

func (s *PostgresStore) Load(ctx context.Context, clientID string) (Record, error) {
	query := `SELECT key, value FROM client_storage WHERE client_id = $1 AND key = ANY($2)`
	args := []any{clientID, storageKeys}
	if s.ttl > 0 {
		query += ` AND updated_at > $3`
		args = append(args, time.Now().Add(-s.ttl))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return Record{}, fmt.Errorf("load session: %w", err)
	}
	defer rows.Close()

	var rec Record
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Record{}, fmt.Errorf("scan session: %w", err)
		}
		switch key {
		case KeyToken:
			rec.Token = value
		case KeyUser:
			rec.User = value
		}
	}
	if err := rows.Err(); err != nil {
		return Record{}, fmt.Errorf("load session: %w", err)
	}
	return rec, nil
}

// Save upserts both keys inside one transaction.
func (s *PostgresStore) Save(ctx context.Context, clientID string, rec Record) error {
	const upsert = `
INSERT INTO client_storage (client_id, key, value, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (client_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, upsert, clientID, KeyToken, rec.Token); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, upsert, clientID, KeyUser, rec.User)
		return err
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context, clientID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM client_storage WHERE client_id = $1 AND key = ANY($2)`, clientID, storageKeys)
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Purge deletes rows past the ttl and reports how many were removed.
func (s *PostgresStore) Purge(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM client_storage WHERE updated_at <= $1`, time.Now().Add(-s.ttl))
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

package db

import (
	"context"
	"time"
)

type Lookup struct {
	Key       string
	Query     string
	Result    string
	CreatedAt time.Time
}

// GetLookup returns the cached lookup for key, or sql.ErrNoRows.
func (d *DB) GetLookup(ctx context.Context, key string) (Lookup, error) {
	var l Lookup
	var created int64
	err := d.conn.QueryRowContext(ctx,
		`SELECT key, query, result, created_at FROM lookup_cache WHERE key = ?`, key,
	).Scan(&l.Key, &l.Query, &l.Result, &created)
	if err != nil {
		return Lookup{}, err
	}
	l.CreatedAt = time.Unix(created, 0)
	return l, nil
}

func (d *DB) UpsertLookup(ctx context.Context, l Lookup) error {
	_, err := d.conn.ExecContext(ctx,
		`INSERT INTO lookup_cache (key, query, result, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET query = excluded.query, result = excluded.result, created_at = excluded.created_at`,
		l.Key, l.Query, l.Result, l.CreatedAt.Unix(),
	)
	return err
}

// PruneLookups deletes all but the newest keep entries.
func (d *DB) PruneLookups(ctx context.Context, keep int64) error {
	_, err := d.conn.ExecContext(ctx,
		`DELETE FROM lookup_cache WHERE key NOT IN (
			SELECT key FROM lookup_cache ORDER BY created_at DESC LIMIT ?
		)`, keep,
	)
	return err
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"palmcosmic/internal/content"
	"palmcosmic/internal/timekey"
)

// ErrUnavailable marks persistence-layer failures. On read, callers
// treat it as a cache miss and regenerate; on write, they log and keep
// the generated content.
var ErrUnavailable = errors.New("content store unavailable")

// ContentStore persists content records in Postgres. Writes are
// write-once: the cache id is the primary key and conflicting inserts
// are dropped, so once a record exists reads never regenerate it.
type ContentStore struct {
	db *sql.DB
}

func NewContentStore(db *sql.DB) *ContentStore {
	return &ContentStore{db: db}
}

// Get fetches a record by cache id. The bool reports presence.
func (s *ContentStore) Get(ctx context.Context, cacheID string) (content.Record, bool, error) {
	var rec content.Record
	var kind, granularity string
	var model, requestID sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT cache_id, kind, granularity, subject, time_key, payload,
		       model, source, request_id, generated_at, expires_at
		FROM content_records
		WHERE cache_id = $1`, cacheID).Scan(
		&rec.CacheID, &kind, &granularity, &rec.Subject, &rec.TimeKey,
		&rec.Payload, &model, &rec.Source, &requestID, &rec.GeneratedAt, &rec.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return content.Record{}, false, nil
	}
	if err != nil {
		return content.Record{}, false, fmt.Errorf("%w: get %s: %v", ErrUnavailable, cacheID, err)
	}

	rec.Kind = content.Kind(kind)
	rec.Granularity = timekey.Granularity(granularity)
	rec.Model = model.String
	rec.RequestID = requestID.String
	return rec, true, nil
}

// Put inserts a record, keeping the first writer on a race. Duplicate
// generation wastes one upstream call but never corrupts state.
func (s *ContentStore) Put(ctx context.Context, rec content.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO content_records
			(cache_id, kind, granularity, subject, time_key, payload,
			 model, source, request_id, generated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (cache_id) DO NOTHING`,
		rec.CacheID, rec.Kind.String(), rec.Granularity.String(), rec.Subject,
		rec.TimeKey, []byte(rec.Payload), nullable(rec.Model), string(rec.Source),
		nullable(rec.RequestID), rec.GeneratedAt, rec.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("%w: put %s: %v", ErrUnavailable, rec.CacheID, err)
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

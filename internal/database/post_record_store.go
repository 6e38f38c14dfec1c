package database

import (
	"context"
	"fmt"
	"time"

	"github.com/dmoreira/transferwire/internal/models"
)

// PostRecordStore persists confirmed deliveries in Postgres. The pipeline
// works without it; it exists so the operator keeps an audit trail of
// what was republished and when.
type PostRecordStore struct {
	db *DB
}

func NewPostRecordStore(db *DB) *PostRecordStore {
	return &PostRecordStore{db: db}
}

// Insert stores one record. The content id is the primary key, so a
// duplicate insert fails loudly instead of hiding a dedup violation.
func (s *PostRecordStore) Insert(ctx context.Context, record models.PostRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO post_records (content_id, delivery_id, source_id, posted_at)
		VALUES ($1, $2, $3, $4)
	`, record.ContentID, record.DeliveryID, record.SourceID, record.PostedAt)
	if err != nil {
		return fmt.Errorf("insert post record: %w", err)
	}
	return nil
}

// Recent returns the newest records, most recent first.
func (s *PostRecordStore) Recent(ctx context.Context, limit int) ([]models.PostRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT content_id, delivery_id, source_id, posted_at
		FROM post_records
		ORDER BY posted_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query post records: %w", err)
	}
	defer rows.Close()

	records := make([]models.PostRecord, 0, limit)
	for rows.Next() {
		var r models.PostRecord
		if err := rows.Scan(&r.ContentID, &r.DeliveryID, &r.SourceID, &r.PostedAt); err != nil {
			return nil, fmt.Errorf("scan post record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// CountSince counts confirmed deliveries at or after t.
func (s *PostRecordStore) CountSince(ctx context.Context, t time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM post_records WHERE posted_at >= $1
	`, t).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count post records: %w", err)
	}
	return count, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

const countUsageRecords = `SELECT COUNT(*) FROM usage_records
WHERE user_id = $1 AND namespace = $2 AND feature = $3`

type CountUsageRecordsParams struct {
	UserID    uuid.UUID
	Namespace string
	Feature   string
}

func (q *Queries) CountUsageRecords(ctx context.Context, arg CountUsageRecordsParams) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countUsageRecords, arg.UserID, arg.Namespace, arg.Feature).Scan(&count)
	return count, err
}

const createUsageRecord = `INSERT INTO usage_records (user_id, namespace, feature, metadata)
VALUES ($1, $2, $3, $4)
RETURNING id, user_id, namespace, feature, metadata, created_at`

type CreateUsageRecordParams struct {
	UserID    uuid.UUID
	Namespace string
	Feature   string
	Metadata  pqtype.NullRawMessage
}

func (q *Queries) CreateUsageRecord(ctx context.Context, arg CreateUsageRecordParams) (UsageRecord, error) {
	row := q.db.QueryRowContext(ctx, createUsageRecord, arg.UserID, arg.Namespace, arg.Feature, arg.Metadata)
	var r UsageRecord
	err := row.Scan(
		&r.ID,
		&r.UserID,
		&r.Namespace,
		&r.Feature,
		&r.Metadata,
		&r.CreatedAt,
	)
	return r, err
}

// Serializes concurrent metering of one counter until the surrounding
// transaction ends.
const lockUsageCounter = `SELECT pg_advisory_xact_lock(hashtext($1))`

func (q *Queries) LockUsageCounter(ctx context.Context, counterKey string) error {
	_, err := q.db.ExecContext(ctx, lockUsageCounter, counterKey)
	return err
}

// ErrUsageCheck marks a CreateUsageRecordIfBelow failure that happened
// before anything was written (lock or count).
var ErrUsageCheck = errors.New("usage check failed")

// CreateUsageRecordIfBelow inserts a record only while the counter is below
// limit. The count and insert run in one transaction under an advisory lock,
// so concurrent callers cannot both pass the check.
func (s *Store) CreateUsageRecordIfBelow(ctx context.Context, arg CreateUsageRecordParams, limit int64) (bool, int64, error) {
	var (
		inserted bool
		count    int64
	)
	err := s.ExecTx(ctx, func(q *Queries) error {
		key := arg.UserID.String() + ":" + arg.Namespace + ":" + arg.Feature
		if err := q.LockUsageCounter(ctx, key); err != nil {
			return fmt.Errorf("%w: %w", ErrUsageCheck, err)
		}

		var err error
		count, err = q.CountUsageRecords(ctx, CountUsageRecordsParams{
			UserID:    arg.UserID,
			Namespace: arg.Namespace,
			Feature:   arg.Feature,
		})
		if err != nil {
			return fmt.Errorf("%w: %w", ErrUsageCheck, err)
		}
		if count >= limit {
			return nil
		}

		if _, err := q.CreateUsageRecord(ctx, arg); err != nil {
			return err
		}
		inserted = true
		count++
		return nil
	})
	return inserted, count, err
}

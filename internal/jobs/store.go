package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	jobKeyPrefix = "job:"
	maxTxRetries = 5
)

var ErrJobNotFound = errors.New("jobs: job not found")

// Store はジョブ状態を Redis に保存します。
type Store struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

// NewStore は Store を作成します。
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{
		rdb: rdb,
		ttl: ttl,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Get はジョブ情報を取得します。存在しない場合は (nil, nil) を返します。
func (s *Store) Get(ctx context.Context, jobID string) (*Record, error) {
	if jobID == "" {
		return nil, fmt.Errorf("jobID is required")
	}
	data, err := s.rdb.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Upsert はジョブ情報を保存します（存在しない場合は作成）。
func (s *Store) Upsert(ctx context.Context, record *Record) error {
	if record == nil {
		return fmt.Errorf("record is nil")
	}
	now := s.now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	if record.ExpiresAt.IsZero() && s.ttl > 0 {
		record.ExpiresAt = record.CreatedAt.Add(s.ttl)
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, jobKey(record.JobID), payload, s.ttl).Err()
}

// MarkRunning は実行開始を記録し、試行回数を加算します。
func (s *Store) MarkRunning(ctx context.Context, jobID string) error {
	return s.updatePartial(ctx, jobID, func(record *Record) {
		record.Status = StatusRunning
		record.Attempts++
		record.Error = nil
	})
}

// MarkDone はジョブ完了時の情報を保存します。
func (s *Store) MarkDone(ctx context.Context, jobID string, meta any) error {
	return s.updatePartial(ctx, jobID, func(record *Record) {
		record.Status = StatusSucceeded
		record.Meta = meta
		record.Error = nil
	})
}

// MarkFailed はジョブ失敗時の情報を保存します。
func (s *Store) MarkFailed(ctx context.Context, jobID string, errInfo *ErrorInfo) error {
	return s.updatePartial(ctx, jobID, func(record *Record) {
		record.Status = StatusFailed
		if errInfo != nil {
			record.Error = errInfo
		}
	})
}

// updatePartial は WATCH による楽観ロックで読み取り・更新します。
func (s *Store) updatePartial(ctx context.Context, jobID string, mutate func(*Record)) error {
	key := jobKey(jobID)
	update := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
			}
			return err
		}
		var record Record
		if err := json.Unmarshal(data, &record); err != nil {
			return err
		}
		mutate(&record)
		record.UpdatedAt = s.now()
		payload, err := json.Marshal(&record)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, redis.KeepTTL)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.rdb.Watch(ctx, update, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("jobs: too many concurrent updates for %s", jobID)
}

func jobKey(id string) string {
	return jobKeyPrefix + id
}

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	apperrors "github.com/job-curator/internal/errors"
	"github.com/job-curator/internal/models"
	"github.com/job-curator/internal/types"
)

const (
	checkpointKeyPrefix = "curator:checkpoint:"
	lockKeyPrefix       = "curator:lock:"
)

// CheckpointStore keeps the keyset cursor of in-progress sweeps in Redis
type CheckpointStore struct {
	cache *RedisCache
	ttl   time.Duration
}

// NewCheckpointStore creates a checkpoint store. A non-positive ttl keeps
// checkpoints until cleared.
func NewCheckpointStore(cache *RedisCache, ttl time.Duration) *CheckpointStore {
	if ttl < 0 {
		ttl = 0
	}
	return &CheckpointStore{cache: cache, ttl: ttl}
}

func checkpointKey(sweep types.SweepKind) string {
	return checkpointKeyPrefix + string(sweep)
}

// Load returns the stored cursor for sweep, or nil when none is stored
func (s *CheckpointStore) Load(ctx context.Context, sweep types.SweepKind) (*models.ProbeCursor, error) {
	raw, err := s.cache.Get(ctx, checkpointKey(sweep))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, apperrors.NewCheckpointError("load", err)
	}

	var cursor models.ProbeCursor
	if err := json.Unmarshal([]byte(raw), &cursor); err != nil {
		return nil, apperrors.NewCheckpointError("decode", err)
	}
	return &cursor, nil
}

// Save stores cursor as the resume point for sweep
func (s *CheckpointStore) Save(ctx context.Context, sweep types.SweepKind, cursor models.ProbeCursor) error {
	data, err := json.Marshal(cursor)
	if err != nil {
		return apperrors.NewCheckpointError("encode", err)
	}
	if err := s.cache.Set(ctx, checkpointKey(sweep), data, s.ttl); err != nil {
		return apperrors.NewCheckpointError("save", err)
	}
	return nil
}

// Clear drops the checkpoint so the next run starts from the beginning
func (s *CheckpointStore) Clear(ctx context.Context, sweep types.SweepKind) error {
	if err := s.cache.Del(ctx, checkpointKey(sweep)); err != nil {
		return apperrors.NewCheckpointError("clear", err)
	}
	return nil
}

// releaseScript deletes the lock only if it still holds the caller's token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RunLock serializes runs of the same sweep kind across processes
type RunLock struct {
	cache *RedisCache
	ttl   time.Duration
}

// NewRunLock creates a lock whose holds expire after ttl
func NewRunLock(cache *RedisCache, ttl time.Duration) *RunLock {
	return &RunLock{cache: cache, ttl: ttl}
}

// Acquire takes the lock for sweep. It returns a release func when the lock
// was taken and a SweepRunning error when another holder has it.
func (l *RunLock) Acquire(ctx context.Context, sweep types.SweepKind) (func(context.Context) error, error) {
	key := lockKeyPrefix + string(sweep)
	token := uuid.NewString()

	ok, err := l.cache.SetNX(ctx, key, token, l.ttl)
	if err != nil {
		return nil, apperrors.NewCheckpointError("lock", err)
	}
	if !ok {
		return nil, apperrors.NewSweepRunningError(sweep)
	}

	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.cache.Client(), []string{key}, token).Err(); err != nil {
			return fmt.Errorf("failed to release %s lock: %w", sweep, err)
		}
		return nil
	}
	return release, nil
}

package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/YashHaritash/btp-backend/internal/domain"
)

const keyPrefix = "collab:session:"

// renameScript moves a hash field atomically; it does nothing when the old
// field is absent.
var renameScript = redis.NewScript(`
local v = redis.call('HGET', KEYS[1], ARGV[1])
if not v then
  return 0
end
redis.call('HSET', KEYS[1], ARGV[2], v)
redis.call('HDEL', KEYS[1], ARGV[1])
return 1
`)

// RedisStore is a Store shared by every server instance. A session's legacy
// buffer is a string key; its files are one hash. Session existence is
// tracked by a marker field so an emptied file map still counts as existing.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

var _ Store = (*RedisStore)(nil)

// markerField flags that a session's file map was created. File names are
// workspace-relative paths, so they never start with a NUL byte.
const markerField = "\x00exists"

func codeKey(sessionID string) string  { return keyPrefix + sessionID + ":code" }
func filesKey(sessionID string) string { return keyPrefix + sessionID + ":files" }

func (s *RedisStore) Snapshot(ctx context.Context, sessionID string) (domain.Snapshot, error) {
	var codeCmd *redis.StringCmd
	var filesCmd *redis.MapStringStringCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		codeCmd = pipe.Get(ctx, codeKey(sessionID))
		filesCmd = pipe.HGetAll(ctx, filesKey(sessionID))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return domain.Snapshot{}, fmt.Errorf("redis: snapshot %s: %w", sessionID, err)
	}

	var snap domain.Snapshot
	if code, err := codeCmd.Result(); err == nil {
		snap.LegacyCode = &code
	} else if !errors.Is(err, redis.Nil) {
		return domain.Snapshot{}, fmt.Errorf("redis: snapshot code %s: %w", sessionID, err)
	}

	files, err := filesCmd.Result()
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("redis: snapshot files %s: %w", sessionID, err)
	}
	if _, ok := files[markerField]; ok {
		delete(files, markerField)
		snap.Exists = true
		snap.Files = files
	}
	return snap, nil
}

func (s *RedisStore) SetLegacyCode(ctx context.Context, sessionID, code string) error {
	if err := s.client.Set(ctx, codeKey(sessionID), code, 0).Err(); err != nil {
		return fmt.Errorf("redis: set code %s: %w", sessionID, err)
	}
	return nil
}

func (s *RedisStore) PutFile(ctx context.Context, sessionID, fileName, content string) error {
	err := s.client.HSet(ctx, filesKey(sessionID), markerField, "1", fileName, content).Err()
	if err != nil {
		return fmt.Errorf("redis: put file %s/%s: %w", sessionID, fileName, err)
	}
	return nil
}

func (s *RedisStore) RemoveFile(ctx context.Context, sessionID, fileName string) error {
	if err := s.client.HDel(ctx, filesKey(sessionID), fileName).Err(); err != nil {
		return fmt.Errorf("redis: remove file %s/%s: %w", sessionID, fileName, err)
	}
	return nil
}

func (s *RedisStore) RenameFile(ctx context.Context, sessionID, oldName, newName string) error {
	if oldName == newName {
		return nil
	}
	err := renameScript.Run(ctx, s.client, []string{filesKey(sessionID)}, oldName, newName).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis: rename file %s/%s: %w", sessionID, oldName, err)
	}
	return nil
}

func (s *RedisStore) Drop(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, codeKey(sessionID), filesKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis: drop %s: %w", sessionID, err)
	}
	return nil
}

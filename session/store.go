package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRedisUnavailable wraps any Redis failure.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrRecordNotFound is returned by Get when no live record exists.
	ErrRecordNotFound = errors.New("session record not found")
	// ErrRecordInvalid is returned by Register for records without ids.
	ErrRecordInvalid = errors.New("session record requires session id and user id")
)

const deleteRecordScript = `
local existed = redis.call("EXISTS", KEYS[1])
redis.call("DEL", KEYS[1])
if KEYS[2] ~= "" then
  redis.call("SREM", KEYS[2], ARGV[1])
end
return existed
`

var deleteRecordLua = redis.NewScript(deleteRecordScript)

// Store is a Redis-backed durable session record store. Records live under
// "<prefix>:<sid>" and every sid is indexed in the owning user's set so that
// all sessions of a user can be revoked together.
type Store struct {
	redis   redis.UniversalClient
	prefix  string
	ttl     time.Duration
	sliding bool
	now     func() time.Time
}

// NewStore creates a record [Store]. A zero ttl stores records without
// expiry; sliding refreshes the ttl on every successful [Store.Exists].
func NewStore(redis redis.UniversalClient, prefix string, ttl time.Duration, sliding bool) *Store {
	if prefix == "" {
		prefix = "as"
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Store{
		redis:   redis,
		prefix:  prefix,
		ttl:     ttl,
		sliding: sliding && ttl > 0,
		now:     time.Now,
	}
}

// WithClock sets the clock used to stamp records registered without a
// CreatedAt. A nil now keeps the current clock.
func (s *Store) WithClock(now func() time.Time) *Store {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

func (s *Store) userKey(userID string) string {
	return "au:" + userID
}

// Register persists rec and adds it to its user's index.
func (s *Store) Register(ctx context.Context, rec *Record) error {
	if rec == nil || rec.SessionID == "" || rec.UserID == "" {
		return ErrRecordInvalid
	}
	if rec.CreatedAt == 0 {
		rec.CreatedAt = s.now().Unix()
	}

	data, err := Encode(rec)
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(rec.SessionID), data, s.ttl)
		pipe.SAdd(ctx, s.userKey(rec.UserID), rec.SessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Exists reports whether a live record is stored for sessionID. With sliding
// expiration the check and the ttl refresh are a single EXPIRE, which never
// creates a key.
//
//	Performance: 1 Redis command.
func (s *Store) Exists(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}

	key := s.key(sessionID)
	if s.sliding {
		ok, err := s.redis.Expire(ctx, key, s.ttl).Result()
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		return ok, nil
	}

	n, err := s.redis.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

// Get returns the record for sessionID without touching its ttl.
func (s *Store) Get(ctx context.Context, sessionID string) (*Record, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	rec, err := Decode(data)
	if err != nil {
		return nil, err
	}
	rec.SessionID = sessionID
	return rec, nil
}

// Delete removes the record for sessionID and its index entry. Deleting a
// missing record is not an error. A corrupt record is still removed.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	var userKey string
	rec, err := s.Get(ctx, sessionID)
	switch {
	case errors.Is(err, ErrRecordNotFound):
		return nil
	case errors.Is(err, ErrRecordCorrupt):
	case err != nil:
		return err
	default:
		userKey = s.userKey(rec.UserID)
	}

	_, err = deleteRecordLua.Run(ctx, s.redis, []string{s.key(sessionID), userKey}, sessionID).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// DeleteAllForUser revokes every indexed session of userID and returns the
// number of records removed.
//
// A session registered between the index read and the delete survives this
// call; it is caught by the next one or expires on its own.
func (s *Store) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	userKey := s.userKey(userID)

	sessionIDs, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sessionKeys := make([]string, 0, len(sessionIDs))
	for _, sessionID := range sessionIDs {
		sessionKeys = append(sessionKeys, s.key(sessionID))
	}

	var deleted *redis.IntCmd
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(sessionKeys) > 0 {
			deleted = pipe.Del(ctx, sessionKeys...)
		}
		pipe.Del(ctx, userKey)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if deleted == nil {
		return 0, nil
	}
	return int(deleted.Val()), nil
}

// ActiveSessionIDs returns the live session ids of userID. Index entries
// whose record has expired are pruned.
func (s *Store) ActiveSessionIDs(ctx context.Context, userID string) ([]string, error) {
	userKey := s.userKey(userID)

	ids, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(ids) == 0 {
		return []string{}, nil
	}

	pipe := s.redis.Pipeline()
	existsCmds := make([]*redis.IntCmd, len(ids))
	for i, id := range ids {
		existsCmds[i] = pipe.Exists(ctx, s.key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	live := make([]string, 0, len(ids))
	stale := make([]interface{}, 0)
	for i, cmd := range existsCmds {
		if cmd.Val() > 0 {
			live = append(live, ids[i])
		} else {
			stale = append(stale, ids[i])
		}
	}
	if len(stale) > 0 {
		if err := s.redis.SRem(ctx, userKey, stale...).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return live, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

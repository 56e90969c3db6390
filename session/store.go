package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRedisUnavailable = errors.New("redis unavailable")
	ErrNotFound         = errors.New("session not found")
)

const minSlidingTTL = time.Second

// deleteScript removes one session and its entry in the user index.
var deleteScript = redis.NewScript(`
local existed = redis.call("EXISTS", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
if existed == 1 then
  redis.call("DEL", KEYS[1])
end
return existed
`)

// revokeUserScript removes every session indexed under a user, then the
// index itself. ARGV[1] is the session key prefix.
var revokeUserScript = redis.NewScript(`
local ids = redis.call("SMEMBERS", KEYS[1])
local removed = 0
for _, id in ipairs(ids) do
  removed = removed + redis.call("DEL", ARGV[1] .. id)
end
redis.call("DEL", KEYS[1])
return removed
`)

// Options configures a Store.
type Options struct {
	// Prefix namespaces every key: <prefix>:s:<sid> and <prefix>:u:<uid>.
	Prefix string
	// AbsoluteLifetime caps a session from its creation, regardless of
	// renewals. Zero trusts the record's own expiry.
	AbsoluteLifetime time.Duration
	// Sliding renews the key TTL on every read, up to IdleTTL.
	Sliding bool
	IdleTTL time.Duration
	// Jitter spreads renewals by ±Jitter so sessions created together do not
	// expire together.
	Jitter time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Store keeps portal sessions in Redis with an absolute lifetime and optional
// sliding renewal. Each user's session ids are indexed so they can be revoked
// together.
type Store struct {
	redis redis.UniversalClient
	opts  Options
}

// NewStore returns a Store on rdb.
func NewStore(rdb redis.UniversalClient, opts Options) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Jitter < 0 {
		opts.Jitter = 0
	}
	return &Store{redis: rdb, opts: opts}
}

func (s *Store) sessionPrefix() string { return s.opts.Prefix + ":s:" }

func (s *Store) key(sessionID string) string {
	return s.sessionPrefix() + sessionID
}

func (s *Store) userKey(userID string) string {
	return s.opts.Prefix + ":u:" + userID
}

// Save stores sess for ttl and indexes it under its user. The index lives as
// long as the newest session.
func (s *Store) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	data, err := Encode(sess)
	if err != nil {
		return err
	}

	userKey := s.userKey(sess.UserID)
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(sess.SessionID), data, ttl)
		pipe.SAdd(ctx, userKey, sess.SessionID)
		pipe.Expire(ctx, userKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get loads a session. Missing, expired and past-lifetime records return
// ErrNotFound; the last kind is deleted on the way out.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	key := s.key(sessionID)

	data, err := s.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, err
	}
	sess.SessionID = sessionID

	left := s.remaining(sess)
	if left <= 0 {
		if err := s.deleteIndexed(ctx, sess.UserID, sessionID); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}

	if s.opts.Sliding {
		ttl, err := s.renewal(left)
		if err != nil {
			return nil, err
		}
		if err := s.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return sess, nil
}

// Delete removes a session. Deleting a missing session is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	key := s.key(sessionID)

	data, err := s.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		// Unreadable record: no user id, so no index entry to clean.
		if delErr := s.redis.Del(ctx, key).Err(); delErr != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, delErr)
		}
		return nil
	}
	return s.deleteIndexed(ctx, sess.UserID, sessionID)
}

// RevokeUser deletes every session of userID and reports how many existed.
func (s *Store) RevokeUser(ctx context.Context, userID string) (int, error) {
	n, err := revokeUserScript.Run(ctx, s.redis, []string{s.userKey(userID)}, s.sessionPrefix()).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n, nil
}

// SessionIDs lists the ids indexed under userID. The index may briefly hold
// ids whose record already expired.
func (s *Store) SessionIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return ids, nil
}

// Ping measures a Redis round trip.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

func (s *Store) deleteIndexed(ctx context.Context, userID, sessionID string) error {
	err := deleteScript.Run(ctx, s.redis,
		[]string{s.key(sessionID), s.userKey(userID)},
		sessionID,
	).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// remaining is the time left before the earlier of the record's expiry and
// the configured absolute lifetime.
func (s *Store) remaining(sess *Session) time.Duration {
	now := s.opts.Now()
	expiry := time.Unix(sess.ExpiresAt, 0)
	if s.opts.AbsoluteLifetime > 0 {
		if limit := time.Unix(sess.CreatedAt, 0).Add(s.opts.AbsoluteLifetime); limit.Before(expiry) {
			expiry = limit
		}
	}
	return expiry.Sub(now)
}

// renewal picks the next key TTL: IdleTTL plus jitter, never past the
// absolute limit and never below one second unless less is left.
func (s *Store) renewal(left time.Duration) (time.Duration, error) {
	ttl := left
	if s.opts.IdleTTL > 0 && s.opts.IdleTTL < ttl {
		ttl = s.opts.IdleTTL
	}

	if s.opts.Jitter > 0 {
		j, err := jitter(s.opts.Jitter)
		if err != nil {
			return 0, err
		}
		ttl += j
	}

	ttl = min(ttl, left)
	return max(ttl, min(minSlidingTTL, left)), nil
}

// jitter returns a uniform duration in [-d, d].
func jitter(d time.Duration) (time.Duration, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(2*int64(d)+1))
	if err != nil {
		return 0, err
	}
	return time.Duration(n.Int64()) - d, nil
}

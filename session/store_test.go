package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newSessionStoreTest(t *testing.T, opts Options) (*Store, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	if opts.Prefix == "" {
		opts.Prefix = "ps"
	}
	return NewStore(rdb, opts), mr, rdb
}

func testSession() *Session {
	now := time.Now()
	return &Session{
		SessionID: "sid-1",
		UserID:    "u-1",
		Name:      "Carla Coordinator",
		Email:     "carla@example.com",
		Role:      "COORDINATOR",
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(time.Hour).Unix(),
	}
}

func TestEncodeDecodeKeepsFields(t *testing.T) {
	in := testSession()
	data, err := Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	out.SessionID = in.SessionID
	if *out != *in {
		t.Fatalf("got %+v, want %+v", out, in)
	}
}

func TestEncodeRejectsLongField(t *testing.T) {
	s := testSession()
	s.Name = strings.Repeat("x", 256)
	if _, err := Encode(s); !errors.Is(err, ErrFieldTooLong) {
		t.Fatalf("expected ErrFieldTooLong, got %v", err)
	}
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	data, _ := Encode(testSession())
	data[0] = 9
	if _, err := Decode(data); !errors.Is(err, ErrInvalidVersion) {
		t.Fatalf("expected ErrInvalidVersion, got %v", err)
	}
}

func TestSaveGetDelete(t *testing.T) {
	store, _, rdb := newSessionStoreTest(t, Options{})
	ctx := context.Background()
	sess := testSession()

	if err := store.Save(ctx, sess, time.Hour); err != nil {
		t.Fatalf("save session: %v", err)
	}

	got, err := store.Get(ctx, sess.SessionID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.Role != "COORDINATOR" || got.Email != "carla@example.com" || got.SessionID != "sid-1" {
		t.Fatalf("unexpected session %+v", got)
	}

	ids, err := store.SessionIDs(ctx, sess.UserID)
	if err != nil || len(ids) != 1 || ids[0] != "sid-1" {
		t.Fatalf("expected indexed sid-1, got %v (%v)", ids, err)
	}

	if err := store.Delete(ctx, sess.SessionID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := store.Delete(ctx, sess.SessionID); err != nil {
		t.Fatalf("second delete: %v", err)
	}

	if _, err := store.Get(ctx, sess.SessionID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if n, _ := rdb.SCard(ctx, store.userKey(sess.UserID)).Result(); n != 0 {
		t.Fatalf("expected empty user index, got %d members", n)
	}
}

func TestGetPastAbsoluteLifetimeDeletes(t *testing.T) {
	store, _, rdb := newSessionStoreTest(t, Options{Sliding: true, AbsoluteLifetime: time.Hour})
	ctx := context.Background()

	sess := testSession()
	sess.CreatedAt = time.Now().Add(-2 * time.Hour).Unix()
	if err := store.Save(ctx, sess, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, err := store.Get(ctx, sess.SessionID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound past lifetime, got %v", err)
	}
	if n, _ := rdb.Exists(ctx, store.key(sess.SessionID)).Result(); n != 0 {
		t.Fatal("expired record should be deleted")
	}
}

func TestGetHonoursInjectedClock(t *testing.T) {
	now := time.Now()
	store, _, _ := newSessionStoreTest(t, Options{Now: func() time.Time { return now }})
	ctx := context.Background()

	sess := testSession()
	if err := store.Save(ctx, sess, 2*time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := store.Get(ctx, sess.SessionID); err != nil {
		t.Fatalf("get: %v", err)
	}

	// The record says it expires in one hour even though the key lives longer.
	now = now.Add(61 * time.Minute)
	if _, err := store.Get(ctx, sess.SessionID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound past record expiry, got %v", err)
	}
}

func TestSlidingGetRenewsTTL(t *testing.T) {
	store, mr, _ := newSessionStoreTest(t, Options{Sliding: true})
	ctx := context.Background()
	sess := testSession()

	if err := store.Save(ctx, sess, 10*time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}
	mr.FastForward(5 * time.Minute)

	if _, err := store.Get(ctx, sess.SessionID); err != nil {
		t.Fatalf("get: %v", err)
	}
	if ttl := mr.TTL(store.key(sess.SessionID)); ttl <= 5*time.Minute {
		t.Fatalf("expected renewed TTL, got %v", ttl)
	}
}

func TestSlidingGetCappedByIdleTTL(t *testing.T) {
	store, mr, _ := newSessionStoreTest(t, Options{Sliding: true, IdleTTL: 10 * time.Minute})
	ctx := context.Background()

	if err := store.Save(ctx, testSession(), time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := store.Get(ctx, "sid-1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if ttl := mr.TTL("ps:s:sid-1"); ttl != 10*time.Minute {
		t.Fatalf("ttl=%v, want 10m", ttl)
	}
}

func TestRenewalBounds(t *testing.T) {
	store := NewStore(nil, Options{IdleTTL: 10 * time.Minute, Jitter: 30 * time.Second})

	for i := 0; i < 50; i++ {
		ttl, err := store.renewal(time.Hour)
		if err != nil {
			t.Fatalf("renewal: %v", err)
		}
		if ttl < 10*time.Minute-30*time.Second || ttl > 10*time.Minute+30*time.Second {
			t.Fatalf("ttl %v outside jitter band", ttl)
		}
	}

	if ttl, _ := store.renewal(5 * time.Second); ttl > 5*time.Second {
		t.Fatalf("ttl %v exceeds what is left", ttl)
	}
	if ttl, _ := store.renewal(500 * time.Millisecond); ttl != 500*time.Millisecond {
		t.Fatalf("ttl %v, want the remaining 500ms", ttl)
	}
}

func TestRevokeUser(t *testing.T) {
	store, _, rdb := newSessionStoreTest(t, Options{})
	ctx := context.Background()

	for _, sid := range []string{"sid-1", "sid-2", "sid-3"} {
		sess := testSession()
		sess.SessionID = sid
		if err := store.Save(ctx, sess, time.Hour); err != nil {
			t.Fatalf("save %s: %v", sid, err)
		}
	}
	other := testSession()
	other.SessionID, other.UserID = "sid-9", "u-2"
	if err := store.Save(ctx, other, time.Hour); err != nil {
		t.Fatalf("save other: %v", err)
	}

	n, err := store.RevokeUser(ctx, "u-1")
	if err != nil || n != 3 {
		t.Fatalf("RevokeUser = %d, %v; want 3", n, err)
	}
	if _, err := store.Get(ctx, "sid-2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected revoked session gone, got %v", err)
	}
	if _, err := store.Get(ctx, "sid-9"); err != nil {
		t.Fatalf("other user's session must survive: %v", err)
	}
	if n, _ := rdb.Exists(ctx, store.userKey("u-1")).Result(); n != 0 {
		t.Fatal("user index should be removed")
	}

	if n, err := store.RevokeUser(ctx, "nobody"); err != nil || n != 0 {
		t.Fatalf("RevokeUser(nobody) = %d, %v", n, err)
	}
}

func TestDeleteCorruptRecord(t *testing.T) {
	store, _, rdb := newSessionStoreTest(t, Options{})
	ctx := context.Background()

	if err := rdb.Set(ctx, store.key("sid-bad"), []byte("bad"), time.Hour).Err(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := store.Delete(ctx, "sid-bad"); err != nil {
		t.Fatalf("delete corrupt: %v", err)
	}
	if n, _ := rdb.Exists(ctx, store.key("sid-bad")).Result(); n != 0 {
		t.Fatal("corrupt record should be removed")
	}
}

func TestRedisDown(t *testing.T) {
	store, mr, _ := newSessionStoreTest(t, Options{})
	mr.Close()

	if _, err := store.Get(context.Background(), "sid"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
	if _, err := store.RevokeUser(context.Background(), "u-1"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
	if _, err := store.Ping(context.Background()); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ping failure, got %v", err)
	}
}

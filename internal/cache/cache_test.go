package cache

import (
	"strings"
	"testing"
	"unicode/utf8"

	"chatrelay/internal/store"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	s, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	return New(s)
}

func TestPutThenGet(t *testing.T) {
	c := newTestCache(t)
	c.Put("u1", "Hi There", "hello back")

	reply, ok := c.Get("u1", "Hi There")
	if !ok || reply != "hello back" {
		t.Fatalf("want hit with 'hello back', got ok=%v reply=%q", ok, reply)
	}

	// keying is case-insensitive on the message
	reply, ok = c.Get("u1", "hi there")
	if !ok || reply != "hello back" {
		t.Fatalf("case-insensitive lookup failed: ok=%v reply=%q", ok, reply)
	}
}

func TestGetMiss(t *testing.T) {
	c := newTestCache(t)
	if _, ok := c.Get("u1", "never asked"); ok {
		t.Fatalf("unexpected hit")
	}
}

func TestMissesAreScopedPerUser(t *testing.T) {
	c := newTestCache(t)
	c.Put("u1", "hi", "reply for u1")
	if _, ok := c.Get("u2", "hi"); ok {
		t.Fatalf("u2 must not see u1's entry")
	}
}

func TestLongMultiByteMessageRoundTrips(t *testing.T) {
	c := newTestCache(t)
	// 120 bytes of two-byte runes puts the truncation limit mid-rune
	msg := strings.Repeat("ş", 60)
	c.Put("u1", msg, "cevap")

	reply, ok := c.Get("u1", msg)
	if !ok || reply != "cevap" {
		t.Fatalf("read after write broken for multi-byte message: ok=%v reply=%q", ok, reply)
	}

	k := Key("u1", msg)
	if !utf8.ValidString(k) {
		t.Fatalf("key is not valid UTF-8: %q", k)
	}
	if len(k) > maxKeyLen {
		t.Fatalf("key exceeds bound: %d", len(k))
	}
}

func TestLongMessagesTruncateToSameKey(t *testing.T) {
	long := strings.Repeat("a", 300)
	k1 := Key("u1", long)
	k2 := Key("u1", long+"different tail")
	if len(k1) != maxKeyLen {
		t.Fatalf("key not truncated: %d", len(k1))
	}
	if k1 != k2 {
		t.Fatalf("expected truncated keys to collide")
	}
}

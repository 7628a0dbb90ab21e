package push

import (
	"errors"
	"fmt"
	"testing"

	"chatrelay/internal/store"
)

type recordingSender struct {
	sizes  []int
	bodies []string
	failOn int // 1-based call index to fail on, 0 for never
}

func (s *recordingSender) Send(tokens []string, _, body string) error {
	s.sizes = append(s.sizes, len(tokens))
	s.bodies = append(s.bodies, body)
	if s.failOn == len(s.sizes) {
		return errors.New("injected failure")
	}
	return nil
}

func makeTokens(n int) []string {
	tokens := make([]string, n)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("tok-%d", i)
	}
	return tokens
}

func TestDispatchChunksAndIsolatesFailures(t *testing.T) {
	sender := &recordingSender{failOn: 2}
	d := NewDispatcher(sender, "chatrelay")
	d.pacing = 0

	d.Dispatch(makeTokens(850), "big news")

	if len(sender.sizes) != 3 {
		t.Fatalf("want 3 delivery calls, got %d", len(sender.sizes))
	}
	if sender.sizes[0] != 400 || sender.sizes[1] != 400 || sender.sizes[2] != 50 {
		t.Fatalf("unexpected chunk sizes: %v", sender.sizes)
	}
	for _, b := range sender.bodies {
		if b != "big news" {
			t.Fatalf("body mangled: %q", b)
		}
	}
}

func TestDispatchExactMultipleOfChunkSize(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, "chatrelay")
	d.pacing = 0

	d.Dispatch(makeTokens(800), "x")
	if len(sender.sizes) != 2 || sender.sizes[0] != 400 || sender.sizes[1] != 400 {
		t.Fatalf("unexpected chunk sizes: %v", sender.sizes)
	}
}

func TestDispatchNoSenderIsNoop(t *testing.T) {
	d := NewDispatcher(nil, "chatrelay")
	// must return immediately without panicking
	d.Dispatch(makeTokens(10), "ignored")
}

func TestDispatchEmptyTokens(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, "chatrelay")
	d.Dispatch(nil, "x")
	if len(sender.sizes) != 0 {
		t.Fatalf("no chunks expected, got %v", sender.sizes)
	}
}

func TestRegistryIdempotentAdd(t *testing.T) {
	s, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	r := NewRegistry(s)

	if err := r.Add("tok-a"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := r.Add("tok-a"); err != nil {
		t.Fatalf("re-add: %v", err)
	}
	if err := r.Add("tok-b"); err != nil {
		t.Fatalf("add b: %v", err)
	}
	if err := r.Add("  "); err == nil {
		t.Fatalf("blank token must be rejected")
	}

	tokens := r.All()
	if len(tokens) != 2 {
		t.Fatalf("want 2 tokens, got %v", tokens)
	}
}

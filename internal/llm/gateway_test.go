package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func decodeJSONBody(r *http.Request, out any) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(out)
}

func geminiStub(t *testing.T, attempts *[]string, name string, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*attempts = append(*attempts, name)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

const goodBody = `{"candidates":[{"content":{"parts":[{"text":"Hello"}]}}]}`

func newTestClient(srv *httptest.Server) *GeminiClient {
	return NewGemini(srv.Client(), srv.URL, "gemini-test", "k", "", 0.7, 256)
}

func TestGatewayRotatesPastQuotaAndEmptyCandidates(t *testing.T) {
	var attempts []string
	quota := geminiStub(t, &attempts, "key1", http.StatusTooManyRequests, `{"error":"quota"}`)
	defer quota.Close()
	empty := geminiStub(t, &attempts, "key2", http.StatusOK, `{"candidates":[]}`)
	defer empty.Close()
	good := geminiStub(t, &attempts, "key3", http.StatusOK, goodBody)
	defer good.Close()

	g := NewGateway([]Client{newTestClient(quota), newTestClient(empty), newTestClient(good)}, 2*time.Second)
	reply := g.Reply(context.Background(), "hi", nil, "")
	if reply != "Hello" {
		t.Fatalf("want Hello, got %q", reply)
	}
	if len(attempts) != 3 || attempts[0] != "key1" || attempts[1] != "key2" || attempts[2] != "key3" {
		t.Fatalf("unexpected attempt order: %v", attempts)
	}
}

func TestGatewayExhaustionReturnsFallback(t *testing.T) {
	var attempts []string
	var servers []*httptest.Server
	var clients []Client
	for _, name := range []string{"key1", "key2", "key3"} {
		srv := geminiStub(t, &attempts, name, http.StatusTooManyRequests, `{"error":"quota"}`)
		servers = append(servers, srv)
		clients = append(clients, newTestClient(srv))
	}
	defer func() {
		for _, srv := range servers {
			srv.Close()
		}
	}()

	g := NewGateway(clients, 2*time.Second)
	reply := g.Reply(context.Background(), "hi", nil, "")
	if reply != FallbackReply {
		t.Fatalf("want fallback, got %q", reply)
	}
	if len(attempts) != 3 {
		t.Fatalf("want 3 attempts, got %d", len(attempts))
	}
}

func TestGatewayBoundsHistoryAndPrefixesName(t *testing.T) {
	var got geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := decodeJSONBody(r, &got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(goodBody))
	}))
	defer srv.Close()

	var history []Message
	for i := 0; i < 15; i++ {
		history = append(history, Message{Role: "user", Content: "old"})
	}
	history = append(history, Message{Role: "model", Content: "recent"})

	g := NewGateway([]Client{newTestClient(srv)}, 2*time.Second)
	reply := g.Reply(context.Background(), "hi", history, "Alice")
	if reply != "Hello" {
		t.Fatalf("want Hello, got %q", reply)
	}
	// 10 history turns plus the current message
	if len(got.Contents) != 11 {
		t.Fatalf("want 11 contents, got %d", len(got.Contents))
	}
	last := got.Contents[10]
	if last.Role != "user" || last.Parts[0].Text != "Alice: hi" {
		t.Fatalf("unexpected final turn: %+v", last)
	}
	if got.Contents[9].Role != "model" || got.Contents[9].Parts[0].Text != "recent" {
		t.Fatalf("history not bounded from the tail: %+v", got.Contents[9])
	}
}

func TestGeminiSafetySettingsMostPermissive(t *testing.T) {
	var got geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := decodeJSONBody(r, &got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(goodBody))
	}))
	defer srv.Close()

	if _, err := newTestClient(srv).Generate(context.Background(), []Message{{Role: "user", Content: "hi"}}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(got.SafetySettings) != 4 {
		t.Fatalf("want 4 safety settings, got %d", len(got.SafetySettings))
	}
	for _, s := range got.SafetySettings {
		if s.Threshold != "BLOCK_NONE" {
			t.Fatalf("category %s not BLOCK_NONE: %s", s.Category, s.Threshold)
		}
	}
}

func TestGeminiMalformedBodyIsNoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Generate(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err != ErrNoCandidates {
		t.Fatalf("want ErrNoCandidates, got %v", err)
	}
}

package push

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// One multicast request per chunk; 400 stays under the provider batch limit.
const (
	defaultChunkSize = 400
	defaultPacing    = 500 * time.Millisecond
)

// Sender delivers one notification body to one batch of tokens.
type Sender interface {
	Send(tokens []string, title, body string) error
}

// Dispatcher partitions a token list into fixed-size chunks and delivers one
// push request per chunk. A failed chunk is logged and skipped; the remaining
// chunks are still attempted. Failed chunks are not retried.
type Dispatcher struct {
	sender Sender
	title  string

	// overridable so tests neither sleep nor build 401-token fixtures
	chunkSize int
	pacing    time.Duration
}

func NewDispatcher(sender Sender, title string) *Dispatcher {
	return &Dispatcher{
		sender:    sender,
		title:     title,
		chunkSize: defaultChunkSize,
		pacing:    defaultPacing,
	}
}

// Dispatch sends body to every registered token, chunk by chunk with a pacing
// pause between chunks. Callers that must not block run it in a goroutine.
// Without a configured sender it returns immediately.
func (d *Dispatcher) Dispatch(tokens []string, body string) {
	if d.sender == nil {
		log.Printf("push disabled, skipping broadcast to %d tokens", len(tokens))
		return
	}
	for i, chunk := range chunkTokens(tokens, d.chunkSize) {
		if i > 0 {
			time.Sleep(d.pacing)
		}
		if err := d.sender.Send(chunk, d.title, body); err != nil {
			log.Printf("push chunk %d (%d tokens) failed: %v", i+1, len(chunk), err)
			continue
		}
		log.Printf("push chunk %d delivered to %d tokens", i+1, len(chunk))
	}
}

func chunkTokens(tokens []string, size int) [][]string {
	var chunks [][]string
	for len(tokens) > 0 {
		n := size
		if n > len(tokens) {
			n = len(tokens)
		}
		chunks = append(chunks, tokens[:n])
		tokens = tokens[n:]
	}
	return chunks
}

// HTTPSender posts legacy-multicast-shaped batches to the push endpoint with
// the shared outbound client.
type HTTPSender struct {
	httpClient *http.Client
	endpoint   string
	serverKey  string
}

func NewHTTPSender(httpClient *http.Client, endpoint, serverKey string) *HTTPSender {
	return &HTTPSender{httpClient: httpClient, endpoint: endpoint, serverKey: serverKey}
}

type pushRequest struct {
	RegistrationIDs []string         `json:"registration_ids"`
	Notification    pushNotification `json:"notification"`
}

type pushNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (s *HTTPSender) Send(tokens []string, title, body string) error {
	payload, err := json.Marshal(pushRequest{
		RegistrationIDs: tokens,
		Notification:    pushNotification{Title: title, Body: body},
	})
	if err != nil {
		return fmt.Errorf("encode push request: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+s.serverKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push call failed: %w", err)
	}
	defer func(b io.ReadCloser) {
		_ = b.Close()
	}(resp.Body)
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("push endpoint returned %d: %s", resp.StatusCode, data)
	}
	return nil
}

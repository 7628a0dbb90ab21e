package llm

import (
	"context"
	"errors"
	"log"
	"time"
)

// FallbackReply is returned when every credential has been tried without a
// usable completion. It is a valid terminal reply, not an error.
const FallbackReply = "Sorry, I'm having trouble answering right now. Please try again in a moment."

// maxHistoryTurns bounds how much of the conversation is replayed to the
// provider on each call.
const maxHistoryTurns = 10

// Gateway tries an ordered credential set until one client produces a
// completion. Quota exhaustion, empty candidate lists, transport errors and
// non-200 statuses are all treated the same way: log and move to the next
// credential.
type Gateway struct {
	clients []Client
	timeout time.Duration
}

func NewGateway(clients []Client, timeout time.Duration) *Gateway {
	return &Gateway{clients: clients, timeout: timeout}
}

// Reply builds the bounded provider context and rotates through the
// credential set. It never returns an error: exhaustion yields FallbackReply.
func (g *Gateway) Reply(ctx context.Context, message string, history []Message, displayName string) string {
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	current := message
	if displayName != "" {
		current = displayName + ": " + message
	}
	messages := make([]Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, Message{Role: "user", Content: current})

	for i, client := range g.clients {
		attemptCtx, cancel := context.WithTimeout(ctx, g.timeout)
		resp, err := client.Generate(attemptCtx, messages)
		cancel()
		if err == nil {
			return resp.Content
		}
		var apiErr *APIError
		switch {
		case errors.As(err, &apiErr) && apiErr.StatusCode == 429:
			log.Printf("credential %d exhausted quota, rotating", i+1)
		case errors.Is(err, ErrNoCandidates):
			log.Printf("credential %d returned no candidates, rotating", i+1)
		default:
			log.Printf("credential %d failed: %v", i+1, err)
		}
	}

	log.Printf("all %d credentials exhausted, returning fallback reply", len(g.clients))
	return FallbackReply
}

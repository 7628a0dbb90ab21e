package llm

import (
	"context"
	"errors"
	"fmt"
)

type Message struct {
	Role    string
	Content string
}

type Response struct {
	Content string
	Model   string
}

type Client interface {
	Generate(ctx context.Context, messages []Message) (Response, error)
}

// APIError carries the provider HTTP status so the rotation loop can tell
// quota exhaustion apart from other failures.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Body)
}

// ErrNoCandidates marks a 200 response whose candidate list was empty or
// missing. It is a soft failure: the caller moves on to the next credential.
var ErrNoCandidates = errors.New("provider returned no candidates")

package llm

import (
	"net/http"
	"strings"
)

// Factory builds the ordered client list for the Gateway: one Gemini client
// per configured API key, in configuration order, then the OpenAI-compatible
// provider as the final entry when a key for it is set. Blank entries in the
// key list are skipped, not counted as credentials.
type Factory struct {
	HTTPClient   *http.Client
	GeminiBase   string
	GeminiModel  string
	GeminiKeys   []string
	OpenAIKey    string
	OpenAIBase   string
	OpenAIModel  string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
}

func (f *Factory) Clients() []Client {
	var clients []Client
	for _, key := range f.GeminiKeys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		clients = append(clients, NewGemini(f.HTTPClient, f.GeminiBase, f.GeminiModel, key, f.SystemPrompt, f.Temperature, f.MaxTokens))
	}
	if f.OpenAIKey != "" {
		clients = append(clients, NewOpenAI(f.OpenAIKey, f.OpenAIBase, f.OpenAIModel, f.SystemPrompt, f.Temperature, f.MaxTokens))
	}
	return clients
}

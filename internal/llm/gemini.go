package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type GeminiClient struct {
	httpClient   *http.Client
	baseURL      string
	model        string
	apiKey       string
	systemPrompt string
	temperature  float64
	maxTokens    int
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiSafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent        `json:"system_instruction,omitempty"`
	Contents          []geminiContent       `json:"contents"`
	GenerationConfig  geminiGenConfig       `json:"generationConfig"`
	SafetySettings    []geminiSafetySetting `json:"safetySettings"`
}

type geminiGenConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Content filters are pinned to the most permissive threshold: replies are
// persona-filtered by the system prompt, not by the provider.
var geminiSafetyOff = []geminiSafetySetting{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_NONE"},
}

func NewGemini(httpClient *http.Client, baseURL, model, apiKey, systemPrompt string, temperature float64, maxTokens int) *GeminiClient {
	return &GeminiClient{
		httpClient:   httpClient,
		baseURL:      baseURL,
		model:        model,
		apiKey:       apiKey,
		systemPrompt: systemPrompt,
		temperature:  temperature,
		maxTokens:    maxTokens,
	}
}

func (c *GeminiClient) Generate(ctx context.Context, messages []Message) (Response, error) {
	req := geminiRequest{
		GenerationConfig: geminiGenConfig{Temperature: c.temperature, MaxOutputTokens: c.maxTokens},
		SafetySettings:   geminiSafetyOff,
	}
	if c.systemPrompt != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: c.systemPrompt}}}
	}
	for _, m := range messages {
		role := "model"
		if m.Role == "user" {
			role = "user"
		}
		req.Contents = append(req.Contents, geminiContent{Role: role, Parts: []geminiPart{{Text: m.Content}}})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("gemini call failed: %w", err)
	}
	defer func(b io.ReadCloser) {
		_ = b.Close()
	}(resp.Body)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Response{}, &APIError{StatusCode: resp.StatusCode, Body: truncateBody(data)}
	}

	var out geminiResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return Response{}, ErrNoCandidates
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return Response{}, ErrNoCandidates
	}
	text := out.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return Response{}, ErrNoCandidates
	}
	return Response{Content: text, Model: c.model}, nil
}

func truncateBody(b []byte) string {
	const max = 200
	if len(b) > max {
		b = b[:max]
	}
	return string(b)
}

package providers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"
)

// GeminiProvider generates text through the Gemini generateContent endpoint.
type GeminiProvider struct {
	name    string
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewGeminiProvider(client *http.Client, baseURL, apiKey, model string) *GeminiProvider {
	return &GeminiProvider{
		name:    "gemini",
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		circuit: newBreaker("gemini"),
	}
}

func (p *GeminiProvider) Name() string {
	return p.name
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

// Generate sends prompt as a single user turn and returns the concatenated
// text of the first candidate.
func (p *GeminiProvider) Generate(ctx context.Context, prompt string) (string, error) {
	if p.apiKey == "" {
		return "", fmt.Errorf("gemini api key is not configured")
	}

	body, err := json.Marshal(struct {
		Contents []geminiContent `json:"contents"`
	}{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}

	values := url.Values{}
	values.Set("key", p.apiKey)
	u := fmt.Sprintf("%s/models/%s:generateContent?%s", p.baseURL, url.PathEscape(p.model), values.Encode())

	req, err := http.NewRequest(http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := doRequest(ctx, p.client, p.circuit, p.name, req)
	if err != nil {
		return "", err
	}

	var payload struct {
		Candidates []struct {
			Content      geminiContent `json:"content"`
			FinishReason string        `json:"finishReason"`
		} `json:"candidates"`
	}

	if err := decodeBody(p.name, resp, &payload); err != nil {
		return "", err
	}

	if len(payload.Candidates) == 0 {
		return "", &UpstreamError{Upstream: p.name, Err: fmt.Errorf("no candidates returned")}
	}

	var b strings.Builder
	for _, part := range payload.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return b.String(), nil
}

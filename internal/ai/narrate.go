package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// FallbackNarration is used when the model answers with an empty response.
const FallbackNarration = "A wonderful memory!"

const narratePrompt = `You are a creative assistant. Your task is to transform a detailed, technical image description into a short, warm, and nostalgic caption.
Use this information:
- Technical description: "%s"
- Time context: "%s"
Make it sound like a warm memory (1-2 sentences). Write ONLY the final caption.`

// Narrator turns technical captions into warm ones with an Ollama model.
type Narrator struct {
	URL     string
	Model   string
	HTTP    *http.Client
	Limiter *rate.Limiter
}

// NewNarrator returns a Narrator for the Ollama server at url.
func NewNarrator(url, model string, limiter *rate.Limiter) *Narrator {
	return &Narrator{
		URL:     strings.TrimRight(url, "/"),
		Model:   model,
		HTTP:    &http.Client{Timeout: 60 * time.Second},
		Limiter: limiter,
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Narrate returns a short caption for a photo described by description and
// taken at the time given by dateInfo.
func (n *Narrator) Narrate(ctx context.Context, description, dateInfo string) (caption string, err error) {
	start := time.Now()
	defer func() { observe(ServiceNarrate, start, err) }()

	if err := wait(ctx, n.Limiter); err != nil {
		return "", err
	}

	payload, err := json.Marshal(generateRequest{
		Model:  n.Model,
		Prompt: fmt.Sprintf(narratePrompt, description, dateInfo),
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	client := n.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("ollama returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out generateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode ollama response: %w", err)
	}
	if text := strings.TrimSpace(out.Response); text != "" {
		return text, nil
	}
	return FallbackNarration, nil
}

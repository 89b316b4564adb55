package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Captioner describes images through a Gradio image-captioning app.
type Captioner struct {
	Client *GradioClient
	// API is the endpoint name, "/predict" by default.
	API string
}

// NewCaptioner returns a Captioner calling /predict on client.
func NewCaptioner(client *GradioClient) *Captioner {
	return &Captioner{Client: client, API: "/predict"}
}

// Caption uploads the image at path and returns its English description.
func (c *Captioner) Caption(ctx context.Context, path string) (caption string, err error) {
	start := time.Now()
	defer func() { observe(ServiceCaption, start, err) }()

	fd, err := c.Client.Upload(ctx, path)
	if err != nil {
		return "", fmt.Errorf("caption upload failed: %w", err)
	}
	out, err := c.Client.Call(ctx, c.API, fd)
	if err != nil {
		return "", fmt.Errorf("caption request failed: %w", err)
	}
	return firstString(out)
}

// firstString returns the first output as text. Some apps wrap it in a list.
func firstString(out []json.RawMessage) (string, error) {
	if len(out) == 0 {
		return "", errors.New("empty result")
	}
	var s string
	if err := json.Unmarshal(out[0], &s); err == nil {
		return strings.TrimSpace(s), nil
	}
	var nested []json.RawMessage
	if err := json.Unmarshal(out[0], &nested); err == nil {
		return firstString(nested)
	}
	return "", fmt.Errorf("unexpected result %s", out[0])
}

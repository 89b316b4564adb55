package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// NegativePrompt steers the image model away from artifacts that spoil a
// background.
const NegativePrompt = "low quality, blurry, text, watermark, logo, ugly"

// Backgrounds generates collage backgrounds through a Gradio text-to-image app.
type Backgrounds struct {
	Client *GradioClient
	// API is the endpoint name, "/infer" by default.
	API    string
	Width  int
	Height int
}

// NewBackgrounds returns a generator producing 1080x1920 images via /infer.
func NewBackgrounds(client *GradioClient) *Backgrounds {
	return &Backgrounds{Client: client, API: "/infer", Width: 1080, Height: 1920}
}

// Generate renders prompt and resizes the result to the configured size.
func (b *Backgrounds) Generate(ctx context.Context, prompt string) (img image.Image, err error) {
	start := time.Now()
	defer func() { observe(ServiceBackground, start, err) }()

	out, err := b.Client.Call(ctx, b.API, prompt, NegativePrompt)
	if err != nil {
		return nil, fmt.Errorf("background request failed: %w", err)
	}
	if len(out) == 0 {
		return nil, errors.New("background request returned nothing")
	}

	var fd FileData
	if err := json.Unmarshal(out[0], &fd); err != nil || (fd.Path == "" && fd.URL == "") {
		return nil, fmt.Errorf("unexpected background result %s", out[0])
	}
	data, err := b.Client.Download(ctx, fd)
	if err != nil {
		return nil, fmt.Errorf("background download failed: %w", err)
	}

	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode background: %w", err)
	}
	return imaging.Resize(decoded, b.Width, b.Height, imaging.Lanczos), nil
}

package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// maxResponseBytes caps any body read from a remote service.
const maxResponseBytes = 64 << 20

// SpaceURL turns a Hugging Face space id ("owner/name") into its base URL.
// Values that already look like URLs are returned without a trailing slash.
func SpaceURL(space string) string {
	space = strings.TrimSpace(space)
	if space == "" {
		return ""
	}
	if strings.HasPrefix(space, "http://") || strings.HasPrefix(space, "https://") {
		return strings.TrimRight(space, "/")
	}
	host := strings.ToLower(strings.NewReplacer("/", "-", "_", "-", ".", "-").Replace(space))
	return "https://" + host + ".hf.space"
}

// FileData references a file held by a Gradio server.
type FileData struct {
	Path string `json:"path"`
	URL  string `json:"url,omitempty"`
	Meta struct {
		Type string `json:"_type"`
	} `json:"meta"`
}

func newFileData(path string) FileData {
	fd := FileData{Path: path}
	fd.Meta.Type = "gradio.FileData"
	return fd
}

// GradioClient calls named endpoints of a Gradio app over its REST API.
type GradioClient struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
	Limiter *rate.Limiter
}

// NewGradioClient returns a client for the app at base (URL or space id).
func NewGradioClient(base, token string, limiter *rate.Limiter) *GradioClient {
	return &GradioClient{
		BaseURL: SpaceURL(base),
		Token:   token,
		HTTP:    &http.Client{Timeout: 5 * time.Minute},
		Limiter: limiter,
	}
}

func (c *GradioClient) do(req *http.Request) (*http.Response, error) {
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%s %s: %s: %s", req.Method, req.URL.Path, resp.Status, strings.TrimSpace(string(body)))
	}
	return resp, nil
}

// Call invokes api (with or without the leading slash) with data and
// returns the output values once the job completes.
func (c *GradioClient) Call(ctx context.Context, api string, data ...any) ([]json.RawMessage, error) {
	if c.BaseURL == "" {
		return nil, errors.New("gradio client has no base URL")
	}
	if err := wait(ctx, c.Limiter); err != nil {
		return nil, err
	}
	api = strings.TrimPrefix(api, "/")

	payload, err := json.Marshal(map[string]any{"data": data})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/gradio_api/call/"+api, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	var queued struct {
		EventID string `json:"event_id"`
	}
	err = json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&queued)
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s submission: %w", api, err)
	}
	if queued.EventID == "" {
		return nil, fmt.Errorf("%s submission returned no event id", api)
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodGet,
		c.BaseURL+"/gradio_api/call/"+api+"/"+queued.EventID, nil)
	if err != nil {
		return nil, err
	}
	resp, err = c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return readEvents(io.LimitReader(resp.Body, maxResponseBytes))
}

// readEvents consumes a Gradio server-sent event stream until the complete
// or error event.
func readEvents(r io.Reader) ([]json.RawMessage, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxResponseBytes)

	var event string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			switch event {
			case "complete":
				var out []json.RawMessage
				if err := json.Unmarshal([]byte(data), &out); err != nil {
					return nil, fmt.Errorf("failed to decode result: %w", err)
				}
				return out, nil
			case "error":
				if data == "" || data == "null" {
					return nil, errors.New("remote job failed")
				}
				return nil, fmt.Errorf("remote job failed: %s", data)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, errors.New("event stream ended without a result")
}

// Upload sends a local file to the server and returns a reference usable as
// an endpoint input.
func (c *GradioClient) Upload(ctx context.Context, path string) (FileData, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileData{}, err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("files", filepath.Base(path))
	if err != nil {
		return FileData{}, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return FileData{}, err
	}
	if err := mw.Close(); err != nil {
		return FileData{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/gradio_api/upload", &body)
	if err != nil {
		return FileData{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.do(req)
	if err != nil {
		return FileData{}, err
	}
	defer resp.Body.Close()

	var paths []string
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&paths); err != nil {
		return FileData{}, fmt.Errorf("failed to decode upload response: %w", err)
	}
	if len(paths) == 0 {
		return FileData{}, errors.New("upload returned no path")
	}
	return newFileData(paths[0]), nil
}

// Download fetches the content of a file produced by the server.
func (c *GradioClient) Download(ctx context.Context, fd FileData) ([]byte, error) {
	url := fd.URL
	if url == "" {
		url = c.BaseURL + "/gradio_api/file=" + fd.Path
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
}

package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/switchyard/internal/domain"
	"github.com/MrSnakeDoc/switchyard/internal/utils"
)

// Sink delivers a document to the proxy.
type Sink interface {
	Name() string
	Write(ctx context.Context, doc Document) error
}

// FileSink writes the document as YAML for the proxy's file provider.
type FileSink struct {
	path string
}

func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

func (s *FileSink) Name() string { return "file" }

// Write replaces the file atomically so the proxy never reads a partial
// document.
func (s *FileSink) Write(_ context.Context, doc Document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: failed to encode yaml: %v", domain.ErrSink, err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("%w: failed to create output directory: %v", domain.ErrSink, err)
	}
	if err := utils.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSink, err)
	}
	return nil
}

// APISink pushes the document as JSON to the proxy's control endpoint.
type APISink struct {
	url     string
	client  *http.Client
	timeout time.Duration
}

func NewAPISink(url string, client *http.Client, timeout time.Duration) *APISink {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &APISink{url: url, client: client, timeout: timeout}
}

func (s *APISink) Name() string { return "api" }

// Write sends a PUT; any non-2xx answer is a failure. There is no retry,
// the next cycle sends the whole document again.
func (s *APISink) Write(ctx context.Context, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: failed to encode json: %v", domain.ErrSink, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSink, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSink, err)
	}
	defer utils.DrainAndClose(resp.Body, 64<<10)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s returned %d", domain.ErrSink, s.url, resp.StatusCode)
	}
	return nil
}

// internal/api/client.go
package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/meridianops/voyagesim/pkg/core"
)

const uploadRoute = "/api/v1/voyages/add"

// Client talks to the voyage replay web frontend.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Healthcheck checks if the web frontend is reachable.
func (c *Client) Healthcheck() error {
	resp, err := c.httpClient.Get(c.baseURL + "/healthcheck")
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

// Upload sends an exported voyage replay file to the web frontend. The
// multipart body is streamed through a pipe so a multi-day replay never
// sits fully in memory.
func (c *Client) Upload(filePath string, meta core.UploadMetadata) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	errCh := make(chan error, 1)
	go func() {
		defer pw.Close()
		defer writer.Close()
		errCh <- c.writeVoyageForm(writer, file, filepath.Base(filePath), meta)
	}()

	req, err := http.NewRequest(http.MethodPost, c.baseURL+uploadRoute, pr)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if writeErr := <-errCh; writeErr != nil {
		return writeErr
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upload returned status %d", resp.StatusCode)
	}
	return nil
}

// writeVoyageForm writes the metadata fields the frontend's add-voyage route
// expects, then streams the replay file itself.
func (c *Client) writeVoyageForm(writer *multipart.Writer, file io.Reader, filename string, meta core.UploadMetadata) error {
	fields := []struct {
		key   string
		value string
	}{
		{"secret", c.apiKey},
		{"filename", filename},
		{"sessionId", meta.SessionID},
		{"routeName", meta.RouteName},
		{"riskTier", meta.RiskTier},
		{"durationHours", fmt.Sprintf("%f", meta.DurationHours)},
		{"tag", meta.Tag},
	}
	for _, f := range fields {
		if err := writer.WriteField(f.key, f.value); err != nil {
			return fmt.Errorf("failed to write field %s: %w", f.key, err)
		}
	}

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to copy file: %w", err)
	}
	return nil
}

package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/vqhuy/docchat/internal/core/ports"
)

// HTTPStatusError carries a non-2xx server response so callers can branch on
// the status code instead of parsing error strings.
type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "assistant status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("assistant %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("assistant %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

func (c *Client) getJSON(ctx context.Context, path string, out any, operation string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	return c.send(req, out, operation)
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any, operation string) error {
	return c.sendJSON(ctx, http.MethodPost, path, payload, out, operation)
}

func (c *Client) patchJSON(ctx context.Context, path string, payload any, out any, operation string) error {
	return c.sendJSON(ctx, http.MethodPatch, path, payload, out, operation)
}

func (c *Client) deleteJSON(ctx context.Context, path string, operation string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	return c.send(req, nil, operation)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, payload any, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.send(req, out, operation)
}

// postMultipart streams an upload batch as multipart form data. Each file is
// one "files" part named after its client-side display name; the session id
// rides along as a form field when present.
func (c *Client) postMultipart(ctx context.Context, path, sessionID string, files []ports.FileUpload, out any, operation string) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if sessionID != "" {
		if err := writer.WriteField("session_id", sessionID); err != nil {
			return fmt.Errorf("write %s session field: %w", operation, err)
		}
	}
	for _, file := range files {
		part, err := writer.CreateFormFile("files", file.Name)
		if err != nil {
			return fmt.Errorf("create %s form part: %w", operation, err)
		}
		if _, err := io.Copy(part, file.Data); err != nil {
			return fmt.Errorf("copy %s part %q: %w", operation, file.Name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finish %s form: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.sendWith(c.uploader, req, out, operation)
}

func (c *Client) send(req *http.Request, out any, operation string) error {
	return c.sendWith(c.httpClient, req, out, operation)
}

func (c *Client) sendWith(client *http.Client, req *http.Request, out any, operation string) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("assistant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &HTTPStatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

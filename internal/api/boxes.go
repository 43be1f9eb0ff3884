package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// GetBox retrieves a box with its file list.
func (c *Client) GetBox(ctx context.Context, id string) (*Box, error) {
	data, err := c.get(ctx, "/boxes/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	return decodeOne[Box](data)
}

// CreateBox creates a new empty box.
func (c *Client) CreateBox(ctx context.Context, input CreateBoxInput) (*Box, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("box title is required")
	}
	data, err := c.post(ctx, "/boxes", input)
	if err != nil {
		return nil, err
	}
	return decodeOne[Box](data)
}

// UploadFile sends a local file to a box as multipart field "file". The body
// is streamed from disk and sent exactly once. The response body is ignored;
// new files are announced over the realtime channel.
func (c *Client) UploadFile(ctx context.Context, boxID string, input UploadInput) error {
	f, err := os.Open(input.LocalPath)
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}

	name := input.FileName
	if name == "" {
		name = filepath.Base(input.LocalPath)
	}
	mimeType := input.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		defer f.Close()
		pw.CloseWithError(writeUpload(mw, f, name, mimeType))
	}()

	path := fmt.Sprintf("/boxes/%s/files", url.PathEscape(boxID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, pr)
	if err != nil {
		pr.CloseWithError(err)
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	// The retrying client buffers bodies it cannot rewind, so the stream goes
	// straight to the underlying client.
	resp, err := c.http.HTTPClient.Do(req)
	if err != nil {
		pr.CloseWithError(err)
		return fmt.Errorf("request failed: %w", err)
	}
	_, _, err = c.readResponse(resp, http.MethodPost, path)
	return err
}

func writeUpload(mw *multipart.Writer, src io.Reader, name, mimeType string) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(name)))
	header.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("finish multipart body: %w", err)
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
)

// OpenDownload starts a GET for an absolute file URL and returns the body
// stream and its advertised length (-1 when unknown). The caller must close
// the body.
func (c *Client) OpenDownload(ctx context.Context, fileURL string) (io.ReadCloser, int64, error) {
	if strings.TrimSpace(fileURL) == "" {
		return nil, 0, fmt.Errorf("file url is required")
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, 0, fmt.Errorf("download failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, 0, fmt.Errorf("download HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	c.log.Debug().Str("url", fileURL).Int64("size", resp.ContentLength).Msg("download started")
	return resp.Body, resp.ContentLength, nil
}

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/gravitrone/msjbox/cli/internal/logging"
)

// Client wraps HTTP calls to the box REST API.
//
// Requests are sent once. A failed upload is never replayed, so the backend
// cannot store the same file twice.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
	timeout time.Duration
	log     *logging.Logger
}

// NewClient creates a new API client. timeout bounds JSON calls end to end
// and transfers up to the response headers; transfer bodies are bounded only
// by the caller's context.
func NewClient(baseURL string, timeout ...time.Duration) *Client {
	httpTimeout := 30 * time.Second
	if len(timeout) > 0 && timeout[0] > 0 {
		httpTimeout = timeout[0]
	}

	transport := cleanhttp.DefaultPooledTransport()
	transport.ResponseHeaderTimeout = httpTimeout

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = &http.Client{Transport: transport}
	retryClient.RetryMax = 0
	retryClient.CheckRetry = noRetry
	retryClient.Logger = nil
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    retryClient,
		timeout: httpTimeout,
		log:     logging.Nop(),
	}
}

func noRetry(ctx context.Context, _ *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return false, err
}

// WithLogger routes request and retry logs through log.
func (c *Client) WithLogger(log *logging.Logger) *Client {
	c.log = log.With("api")
	c.http.Logger = &retryLogger{log: c.log}
	return c
}

// BaseURL returns the API root the client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do executes an HTTP request and returns the raw response body.
func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody any
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal body: %w", err)
		}
		reqBody = data
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	return c.readResponse(resp, method, path)
}

// readResponse drains resp and maps error statuses to the API's message.
func (c *Client) readResponse(resp *http.Response, method, path string) ([]byte, int, error) {
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Msg("api request")

	if resp.StatusCode >= 400 {
		if msg, ok := extractAPIErrorBody(respBody); ok {
			return nil, resp.StatusCode, fmt.Errorf("%s", msg)
		}
		return nil, resp.StatusCode, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	return respBody, resp.StatusCode, nil
}

// get performs a GET request.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	body, _, err := c.do(ctx, http.MethodGet, path, nil)
	return body, err
}

// post performs a POST request.
func (c *Client) post(ctx context.Context, path string, body any) ([]byte, error) {
	b, _, err := c.do(ctx, http.MethodPost, path, body)
	return b, err
}

// decodeOne decodes a single-object response. The box backend does not wrap
// payloads in an envelope.
func decodeOne[T any](data []byte) (*T, error) {
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func extractAPIErrorBody(body []byte) (string, bool) {
	if len(body) == 0 {
		return "", false
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", false
	}

	for _, key := range []string{"error", "message", "detail"} {
		if msg, ok := parseErrorValue(payload[key]); ok {
			return msg, true
		}
	}
	return "", false
}

func parseErrorValue(raw any) (string, bool) {
	switch value := raw.(type) {
	case string:
		msg := strings.TrimSpace(value)
		if msg == "" {
			return "", false
		}
		return msg, true
	case map[string]any:
		if nested, ok := parseErrorValue(value["error"]); ok {
			return nested, true
		}
		code, _ := value["code"].(string)
		message, _ := value["message"].(string)
		return formatAPIError(code, message)
	}
	return "", false
}

func formatAPIError(code, message string) (string, bool) {
	code = strings.TrimSpace(code)
	message = strings.TrimSpace(message)
	switch {
	case code != "" && message != "":
		return fmt.Sprintf("%s: %s", code, message), true
	case code != "":
		return code, true
	case message != "":
		return message, true
	default:
		return "", false
	}
}

// retryLogger implements the retryablehttp.LeveledLogger interface.
type retryLogger struct {
	log *logging.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Error().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	// request-level info is logged by do
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Warn().Fields(keysAndValues).Msg(msg)
}

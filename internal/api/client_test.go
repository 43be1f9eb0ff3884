package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, NewClient(srv.URL)
}

func jsonBody(data any) []byte {
	b, _ := json.Marshal(data)
	return b
}

func TestGetBox(t *testing.T) {
	created := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	_, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/boxes/abc123", r.URL.Path)
		w.Write(jsonBody(map[string]any{
			"_id":   "abc123",
			"title": "Vacation",
			"files": []map[string]any{
				{"_id": "f2", "title": "beach.jpg", "url": "https://cdn/beach.jpg", "createdAt": created},
				{"_id": "f1", "title": "notes.pdf", "url": "https://cdn/notes.pdf", "createdAt": created.Add(-time.Hour)},
			},
		}))
	})

	box, err := client.GetBox(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", box.ID)
	assert.Equal(t, "Vacation", box.Title)
	require.Len(t, box.Files, 2)
	assert.Equal(t, "f2", box.Files[0].ID)
	assert.Equal(t, "beach.jpg", box.Files[0].Title)
	assert.True(t, created.Equal(box.Files[0].CreatedAt))
}

func TestGetBoxEscapesID(t *testing.T) {
	_, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/boxes/a%2Fb", r.URL.EscapedPath())
		w.Write(jsonBody(map[string]any{"_id": "a/b", "title": "x", "files": []any{}}))
	})

	_, err := client.GetBox(context.Background(), "a/b")
	require.NoError(t, err)
}

func TestCreateBox(t *testing.T) {
	_, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/boxes", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body CreateBoxInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Shared", body.Title)
		w.Write(jsonBody(map[string]any{"_id": "new-box", "title": body.Title, "files": []any{}}))
	})

	box, err := client.CreateBox(context.Background(), CreateBoxInput{Title: "Shared"})
	require.NoError(t, err)
	assert.Equal(t, "new-box", box.ID)
}

func TestCreateBoxRequiresTitle(t *testing.T) {
	client := NewClient("http://example.invalid")
	_, err := client.CreateBox(context.Background(), CreateBoxInput{Title: "  "})
	assert.EqualError(t, err, "box title is required")
}

func TestUploadFileSendsMultipart(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "IMG_0001.HEIC")
	require.NoError(t, os.WriteFile(local, []byte("pixels"), 0600))

	_, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/boxes/abc123/files", r.URL.Path)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)

		assert.Equal(t, "IMG_0001.jpg", header.Filename)
		assert.Equal(t, "image/heic", header.Header.Get("Content-Type"))
		assert.Equal(t, "pixels", string(data))
		w.WriteHeader(http.StatusCreated)
		w.Write(jsonBody(map[string]any{"_id": "f9"}))
	})

	err := client.UploadFile(context.Background(), "abc123", UploadInput{
		LocalPath: local,
		MimeType:  "image/heic",
		FileName:  "IMG_0001.jpg",
	})
	require.NoError(t, err)
}

func TestUploadFileDefaultsNameAndType(t *testing.T) {
	local := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(local, []byte("%PDF"), 0600))

	_, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "doc.pdf", header.Filename)
		assert.Equal(t, "application/octet-stream", header.Header.Get("Content-Type"))
	})

	require.NoError(t, client.UploadFile(context.Background(), "abc123", UploadInput{LocalPath: local}))
}

func TestUploadFileMissingLocalFile(t *testing.T) {
	client := NewClient("http://example.invalid")
	err := client.UploadFile(context.Background(), "abc123", UploadInput{LocalPath: filepath.Join(t.TempDir(), "nope")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open upload")
}

func TestHTTPErrorExtractsMessage(t *testing.T) {
	cases := []struct {
		name string
		body map[string]any
		want string
	}{
		{name: "string error", body: map[string]any{"error": "Box not found"}, want: "Box not found"},
		{name: "nested error", body: map[string]any{"error": map[string]any{"code": "NOT_FOUND", "message": "no box"}}, want: "NOT_FOUND: no box"},
		{name: "message", body: map[string]any{"message": "bad id"}, want: "bad id"},
		{name: "detail", body: map[string]any{"detail": "denied"}, want: "denied"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				w.Write(jsonBody(tc.body))
			})
			_, err := client.GetBox(context.Background(), "nope")
			require.Error(t, err)
			assert.Equal(t, tc.want, err.Error())
		})
	}
}

func TestHTTPErrorFallsBackToStatus(t *testing.T) {
	_, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, "plain failure\n")
	})

	_, err := client.GetBox(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, "HTTP 400: plain failure", err.Error())
}

func TestServerErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	_, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		w.Write(jsonBody(map[string]any{"error": "upstream down"}))
	})

	_, err := client.GetBox(context.Background(), "abc123")
	require.Error(t, err)
	assert.Equal(t, "upstream down", err.Error())
	assert.Equal(t, int32(1), calls.Load())
}

func TestFailedUploadIsSentOnce(t *testing.T) {
	local := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(local, []byte("hello"), 0600))

	var calls atomic.Int32
	_, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/boxes/abc123/files", r.URL.Path)
		calls.Add(1)
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := client.UploadFile(context.Background(), "abc123", UploadInput{LocalPath: local})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 500")
	assert.Equal(t, int32(1), calls.Load())
}

func TestUploadFileStreamsBody(t *testing.T) {
	local := filepath.Join(t.TempDir(), "big.bin")
	payload := make([]byte, 256<<10)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, os.WriteFile(local, payload, 0600))

	_, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		// A streamed body has no length up front.
		assert.Equal(t, int64(-1), r.ContentLength)
		f, _, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, payload, data)
	})

	require.NoError(t, client.UploadFile(context.Background(), "abc123", UploadInput{LocalPath: local}))
}

func TestJSONCallsHonorTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"_id":`))
		w.(http.Flusher).Flush()
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, 100*time.Millisecond)
	start := time.Now()
	_, err := client.GetBox(context.Background(), "abc123")
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestContextCancelStopsRequest(t *testing.T) {
	release := make(chan struct{})
	_, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.GetBox(ctx, "abc123")
	require.Error(t, err)
}

func TestOpenDownload(t *testing.T) {
	_, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files/report.pdf", r.URL.Path)
		w.Header().Set("Content-Length", "7")
		io.WriteString(w, "content")
	})

	body, size, err := client.OpenDownload(context.Background(), client.BaseURL()+"/files/report.pdf")
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
	assert.Equal(t, int64(7), size)
}

func TestOpenDownloadErrors(t *testing.T) {
	_, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, "AccessDenied")
	})

	_, _, err := client.OpenDownload(context.Background(), client.BaseURL()+"/files/x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "download HTTP 403: AccessDenied")

	_, _, err = client.OpenDownload(context.Background(), " ")
	assert.EqualError(t, err, "file url is required")
}

func TestNewClientCustomTimeout(t *testing.T) {
	client := NewClient("http://example.com/", 5*time.Second)
	assert.Equal(t, 5*time.Second, client.timeout)
	assert.Zero(t, client.http.HTTPClient.Timeout)
	transport, ok := client.http.HTTPClient.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, transport.ResponseHeaderTimeout)
	assert.Equal(t, "http://example.com", client.BaseURL())
}

func TestOpenDownloadOutlivesClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 6; i++ {
			io.WriteString(w, "chunk")
			w.(http.Flusher).Flush()
			time.Sleep(50 * time.Millisecond)
		}
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, 100*time.Millisecond)
	body, _, err := client.OpenDownload(context.Background(), srv.URL+"/slow")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("chunk", 6), string(data))
}

func TestClientConcurrentRequests(t *testing.T) {
	var count atomic.Int32
	_, client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		count.Add(1)
		w.Write(jsonBody(map[string]any{"_id": "abc123", "title": "t", "files": []any{}}))
	})

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.GetBox(context.Background(), "abc123")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(workers), count.Load())
}

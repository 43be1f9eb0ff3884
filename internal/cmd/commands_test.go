package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravitrone/msjbox/cli/internal/config"
)

type fakeBackend struct {
	t   *testing.T
	srv *httptest.Server

	mu      sync.Mutex
	created []string
	uploads []string
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{t: t}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /boxes/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "b1" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":"box not found"}`)
			return
		}
		_, _ = io.WriteString(w, `{"_id":"b1","title":"trip","files":[
			{"_id":"f1","title":"a-very-long-document-name.pdf","url":"`+fb.srv.URL+`/cdn/f1","createdAt":"2021-05-01T10:00:00Z"},
			{"_id":"f2","title":"notes.txt","url":"`+fb.srv.URL+`/cdn/f2"}
		]}`)
	})
	mux.HandleFunc("POST /boxes", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		fb.mu.Lock()
		fb.created = append(fb.created, body["title"])
		fb.mu.Unlock()
		_, _ = io.WriteString(w, `{"_id":"b2","title":"`+body["title"]+`","files":[]}`)
	})
	mux.HandleFunc("POST /boxes/{id}/files", func(w http.ResponseWriter, r *http.Request) {
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		fb.mu.Lock()
		fb.uploads = append(fb.uploads, header.Filename)
		fb.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{}`)
	})
	mux.HandleFunc("GET /cdn/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "payload "+r.PathValue("id"))
	})
	fb.srv = httptest.NewServer(mux)
	t.Cleanup(fb.srv.Close)
	return fb
}

// isolate gives each test its own HOME, working dir and backend URL.
func isolate(t *testing.T, apiURL string) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(config.EnvAPIURL, apiURL)
	t.Setenv(config.EnvBoxID, "")
	t.Setenv(config.EnvDownloadDir, filepath.Join(home, "dl"))
	t.Setenv(config.EnvLogLevel, "error")
	t.Chdir(t.TempDir())
	return home
}

func run(t *testing.T, c *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	c.SetOut(&out)
	c.SetErr(&errOut)
	c.SetArgs(args)
	err := c.Execute()
	return out.String(), err
}

func TestUseCmdSavesBox(t *testing.T) {
	fb := newFakeBackend(t)
	isolate(t, fb.srv.URL)

	out, err := run(t, UseCmd(), "b1")
	require.NoError(t, err)
	assert.Contains(t, out, "using box b1 (trip)")

	cfg, err := config.LoadFile()
	require.NoError(t, err)
	assert.Equal(t, "b1", cfg.BoxID)
	assert.Empty(t, cfg.APIURL)
}

func TestUseCmdUnknownBox(t *testing.T) {
	fb := newFakeBackend(t)
	isolate(t, fb.srv.URL)

	_, err := run(t, UseCmd(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "box not found")

	cfg, err := config.LoadFile()
	require.NoError(t, err)
	assert.Empty(t, cfg.BoxID)
}

func TestUseCmdNoVerify(t *testing.T) {
	isolate(t, "http://127.0.0.1:1")

	out, err := run(t, UseCmd(), "--no-verify", "offline")
	require.NoError(t, err)
	assert.Contains(t, out, "using box offline")
}

func TestNewCmdCreatesAndSelects(t *testing.T) {
	fb := newFakeBackend(t)
	isolate(t, fb.srv.URL)

	out, err := run(t, NewCmd(), "summer", "trip")
	require.NoError(t, err)
	assert.Contains(t, out, "created box b2 (summer trip)")
	assert.Equal(t, []string{"summer trip"}, fb.created)

	cfg, err := config.LoadFile()
	require.NoError(t, err)
	assert.Equal(t, "b2", cfg.BoxID)
}

func TestLsCmdRequiresSelection(t *testing.T) {
	fb := newFakeBackend(t)
	isolate(t, fb.srv.URL)

	_, err := run(t, LsCmd())
	assert.ErrorIs(t, err, config.ErrNoBox)
}

func TestLsCmdListsFiles(t *testing.T) {
	fb := newFakeBackend(t)
	isolate(t, fb.srv.URL)

	out, err := run(t, LsCmd(), "b1")
	require.NoError(t, err)
	assert.Contains(t, out, "trip  2 files")
	assert.Contains(t, out, "a-very-long-doc.pdf")
	assert.Contains(t, out, "ago")
	assert.Contains(t, out, "notes.txt")
}

func TestUploadCmdNormalizesName(t *testing.T) {
	fb := newFakeBackend(t)
	isolate(t, fb.srv.URL)
	t.Setenv(config.EnvBoxID, "b1")

	path := filepath.Join(t.TempDir(), "IMG_0042.HEIC")
	require.NoError(t, os.WriteFile(path, []byte("pixels"), 0600))

	out, err := run(t, UploadCmd(), path)
	require.NoError(t, err)
	assert.Contains(t, out, "uploaded IMG_0042.jpg")
	assert.Equal(t, []string{"IMG_0042.jpg"}, fb.uploads)
}

func TestUploadCmdRejectsDirectory(t *testing.T) {
	fb := newFakeBackend(t)
	isolate(t, fb.srv.URL)

	_, err := run(t, UploadCmd(), "--box", "b1", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")
	assert.Empty(t, fb.uploads)
}

func TestGetCmdDownloadsToTitle(t *testing.T) {
	fb := newFakeBackend(t)
	home := isolate(t, fb.srv.URL)

	out, err := run(t, GetCmd(), "--box", "b1", "-q", "f1")
	require.NoError(t, err)

	want := filepath.Join(home, "dl", "a-very-long-document-name.pdf")
	assert.Contains(t, out, "saved "+want)
	data, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, "payload f1", string(data))
}

func TestGetCmdUnknownFile(t *testing.T) {
	fb := newFakeBackend(t)
	isolate(t, fb.srv.URL)

	_, err := run(t, GetCmd(), "--box", "b1", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file missing not found")
}

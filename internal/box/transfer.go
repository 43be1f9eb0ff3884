package box

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// DownloadOption configures Download.
type DownloadOption func(*downloadOptions)

type downloadOptions struct {
	progress func(total int64) io.Writer
}

// WithProgress mirrors downloaded bytes into the writer returned by fn. fn is
// called once with the content length, or -1 when the server did not send one.
func WithProgress(fn func(total int64) io.Writer) DownloadOption {
	return func(o *downloadOptions) {
		o.progress = fn
	}
}

// fetchTo streams fileURL into path. The body is written to a temporary file
// next to path and renamed into place only once complete, so a cancelled
// download never leaves a truncated file under the final name.
func fetchTo(ctx context.Context, src API, fileURL, path string, o downloadOptions) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}

	body, size, err := src.OpenDownload(ctx, fileURL)
	if err != nil {
		return err
	}
	defer body.Close()

	tmp := filepath.Join(dir, "."+filepath.Base(path)+"."+uuid.NewString()+".part")
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	var w io.Writer = f
	if o.progress != nil {
		if pw := o.progress(size); pw != nil {
			w = io.MultiWriter(f, pw)
		}
	}
	if _, err := io.Copy(w, body); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		committed = true
		return fmt.Errorf("move download into place: %w", err)
	}
	committed = true
	return nil
}

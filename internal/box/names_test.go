package box

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeUploadName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"IMG_0001.HEIC", "IMG_0001.jpg"},
		{"photo.heic", "photo.jpg"},
		{"photo.HeIc", "photo.jpg"},
		{"archive.heic.zip", "archive.heic.zip"},
		{"report.pdf", "report.pdf"},
		{"noext", "noext"},
		{".heic", ".heic"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeUploadName(tt.in))
		})
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"short.txt", "short.txt"},
		{"a-very-long-document-name.pdf", "a-very-long-doc.pdf"},
		{"exactly15chars_.md", "exactly15chars_.md"},
		{"no-extension-but-long-name", "no-extension-bu"},
		{"ünïcödé-ñames-are-fine.png", "ünïcödé-ñames-a.png"},
		{"my.archive.tar.gz", "my.archive.tar.gz"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayName(tt.in))
		})
	}
}

func TestLocalPath(t *testing.T) {
	dir := filepath.Join("tmp", "dl")
	assert.Equal(t, filepath.Join(dir, "a-very-long-document-name.pdf"), LocalPath(dir, "a-very-long-document-name.pdf"))
	assert.Equal(t, filepath.Join(dir, "passwd"), LocalPath(dir, "../../etc/passwd"))
	assert.Equal(t, filepath.Join(dir, "download"), LocalPath(dir, ""))
}

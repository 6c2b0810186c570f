package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"justbecause/internal/domain"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "uploads/a/b.png", want: "uploads/a/b.png"},
		{in: "/uploads//a/./b.png", want: "uploads/a/b.png"},
		{in: `uploads\a\b.png`, want: "uploads/a/b.png"},
		{in: "../etc/passwd", wantErr: true},
		{in: "uploads/../../x", wantErr: true},
		{in: "  ", wantErr: true},
	}
	for _, tc := range tests {
		got, err := sanitizeKey(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}
}

func TestSaveImage(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir, "http://localhost:8080/static/")
	require.NoError(t, err)

	up, err := fs.SaveImage(context.Background(), "user-1", append(pngHeader, make([]byte, 64)...))
	require.NoError(t, err)
	assert.Equal(t, "image/png", up.ContentType)
	assert.True(t, strings.HasPrefix(up.Key, "uploads/user-1/"))
	assert.True(t, strings.HasSuffix(up.Key, ".png"))
	assert.Equal(t, "http://localhost:8080/static/"+up.Key, up.URL)

	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(up.Key)))
	assert.NoError(t, err)
}

func TestSaveImageWebP(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), "/static")
	require.NoError(t, err)
	data := append([]byte("RIFF\x24\x00\x00\x00WEBPVP8 "), make([]byte, 32)...)
	up, err := fs.SaveImage(context.Background(), "u", data)
	require.NoError(t, err)
	assert.Equal(t, "image/webp", up.ContentType)
}

func TestSaveImageRejects(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), "/static")
	require.NoError(t, err)

	cases := map[string][]byte{
		"empty":     nil,
		"text":      []byte("hello, this is not an image at all"),
		"too large": append(pngHeader, make([]byte, MaxImageBytes)...),
	}
	for name, data := range cases {
		_, err := fs.SaveImage(context.Background(), "u", data)
		assert.True(t, errors.Is(err, domain.ErrValidation), name)
	}
}

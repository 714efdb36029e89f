package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectMimeAndExt(t *testing.T) {
	png := append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 16)...)
	mimeType, ext := DetectMimeAndExt(png)
	assert.Equal(t, "image/png", mimeType)
	assert.Equal(t, ".png", ext)

	mimeType, ext = DetectMimeAndExt(nil)
	assert.Equal(t, "application/octet-stream", mimeType)
	assert.Equal(t, ".bin", ext)
}

func TestIsImageMime(t *testing.T) {
	assert.True(t, IsImageMime("image/jpeg"))
	assert.False(t, IsImageMime("application/pdf"))
	assert.False(t, IsImageMime(""))
}

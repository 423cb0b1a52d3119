package storage

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// smallest valid PNG header plus IHDR chunk is enough for sniffing
var pngBytes = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
	0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4, 0x89,
}

func TestDecodeImage(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(pngBytes)

	data, ctype, err := DecodeImage(encoded)
	require.NoError(t, err)
	assert.Equal(t, "image/png", ctype)
	assert.Equal(t, pngBytes, data)

	_, ctype, err = DecodeImage("data:image/png;base64," + encoded)
	require.NoError(t, err)
	assert.Equal(t, "image/png", ctype)
	assert.Equal(t, ".png", Extension(ctype))
}

func TestDecodeImageRejects(t *testing.T) {
	_, _, err := DecodeImage("")
	assert.ErrorIs(t, err, ErrEmptyImage)

	_, _, err = DecodeImage("%%%not-base64%%%")
	assert.Error(t, err)

	_, _, err = DecodeImage(base64.StdEncoding.EncodeToString([]byte("plain text, not a picture")))
	assert.ErrorIs(t, err, ErrNotAnImage)
}

func TestDisabledStore(t *testing.T) {
	_, err := Disabled().Put(context.Background(), pngBytes, "image/png")
	assert.ErrorIs(t, err, ErrDisabled)
}

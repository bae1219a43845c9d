package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/lostfound-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestProcess_DownscalesWideImage(t *testing.T) {
	res, err := Process(pngBytes(t, 1600, 400))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", res.ContentType)
	assert.Equal(t, 800, res.Width)
	assert.Equal(t, 200, res.Height)
}

func TestProcess_DownscalesTallImage(t *testing.T) {
	res, err := Process(pngBytes(t, 300, 1200))
	require.NoError(t, err)
	assert.Equal(t, 200, res.Width)
	assert.Equal(t, 800, res.Height)
}

func TestProcess_KeepsSmallImage(t *testing.T) {
	res, err := Process(pngBytes(t, 64, 48))
	require.NoError(t, err)
	assert.Equal(t, 64, res.Width)
	assert.Equal(t, 48, res.Height)
}

func TestProcess_RejectsNonImage(t *testing.T) {
	_, err := Process([]byte("%PDF-1.4 definitely not a picture"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestProcess_RejectsEmpty(t *testing.T) {
	_, err := Process(nil)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

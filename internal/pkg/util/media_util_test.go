package util

import (
	"bytes"
	"image"
	"image/color"
	"io"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memFile 内存中的 multipart.File 实现
type memFile struct {
	*bytes.Reader
}

func (memFile) Close() error { return nil }

func newPNGFile(t *testing.T, width, height int) memFile {
	t.Helper()
	img := imaging.New(width, height, color.White)
	buf := &bytes.Buffer{}
	require.NoError(t, imaging.Encode(buf, img, imaging.PNG))
	return memFile{bytes.NewReader(buf.Bytes())}
}

func TestGetSafeContentType(t *testing.T) {
	file := newPNGFile(t, 64, 48)

	contentType, err := GetSafeContentType(file)
	require.NoError(t, err)
	assert.Equal(t, "image/png", contentType)

	// 嗅探后游标应回到起点，后续解码不受影响
	width, height, err := GetImageDimensions(file)
	require.NoError(t, err)
	assert.Equal(t, 64, width)
	assert.Equal(t, 48, height)
}

func TestMakeThumbnailFitsMaxEdge(t *testing.T) {
	file := newPNGFile(t, 640, 480)

	thumb, err := MakeThumbnail(file, 320)
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(thumb.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 320, cfg.Width)
	assert.Equal(t, 240, cfg.Height)
}

func TestMakeThumbnailAfterFullRead(t *testing.T) {
	file := newPNGFile(t, 640, 480)

	// 主文件上传会把游标读到 EOF，缩略图生成必须仍然成功
	_, err := io.Copy(io.Discard, file)
	require.NoError(t, err)

	thumb, err := MakeThumbnail(file, 320)
	require.NoError(t, err)
	assert.NotZero(t, thumb.Len())
}

func TestMakeThumbnailInvalidData(t *testing.T) {
	file := memFile{bytes.NewReader([]byte("not an image"))}

	_, err := MakeThumbnail(file, 320)
	assert.Error(t, err)
}

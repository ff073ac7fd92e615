package icon

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// solidImage returns a w×h opaque red image.
func solidImage(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 255, A: 255})
		}
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

// decodeEntry decodes the PNG payload of one ICO entry.
func decodeEntry(t *testing.T, data []byte, e Entry) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data[e.Offset : e.Offset+e.Size]))
	require.NoError(t, err)
	return img
}

// TestEncode_DefaultSizes verifies the ICO directory lists every default
// size largest first and that the 256 entry really is 256×256.
func TestEncode_DefaultSizes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, solidImage(300, 300), nil))

	data := buf.Bytes()
	entries, err := ReadEntries(data)
	require.NoError(t, err)
	require.Len(t, entries, len(DefaultSizes))

	for i, size := range DefaultSizes {
		assert.Equal(t, size, entries[i].Width)
		assert.Equal(t, size, entries[i].Height)

		img := decodeEntry(t, data, entries[i])
		assert.Equal(t, image.Rect(0, 0, size, size), img.Bounds())
	}

	// Byte 0 of the first directory entry encodes 256 as 0.
	assert.Equal(t, byte(0), data[icoHeaderLen])
}

// TestEncode_PreservesAspect checks a wide source is letterboxed: the
// centre is opaque, the top and bottom rows are transparent.
func TestEncode_PreservesAspect(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, solidImage(200, 100), []int{64}))

	entries, err := ReadEntries(buf.Bytes())
	require.NoError(t, err)
	img := decodeEntry(t, buf.Bytes(), entries[0])

	_, _, _, top := img.At(32, 2).RGBA()
	_, _, _, mid := img.At(32, 32).RGBA()
	assert.Zero(t, top, "padding rows must be transparent")
	assert.NotZero(t, mid)
}

func TestEncode_DeduplicatesAndSorts(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, solidImage(64, 64), []int{16, 48, 16, 32}))

	entries, err := ReadEntries(buf.Bytes())
	require.NoError(t, err)

	widths := make([]int, 0, len(entries))
	for _, e := range entries {
		widths = append(widths, e.Width)
	}
	assert.Equal(t, []int{48, 32, 16}, widths)
}

func TestEncode_RejectsBadSize(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Encode(&buf, solidImage(16, 16), []int{512}))
	assert.Error(t, Encode(&buf, solidImage(16, 16), []int{0}))
}

// TestConvertFile replaces a stale ICO and produces a readable file.
func TestConvertFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "图标.png")
	dst := filepath.Join(dir, "MotorEffMAP.ico")
	writePNG(t, src, solidImage(512, 512))
	require.NoError(t, os.WriteFile(dst, []byte("stale"), 0644))

	require.NoError(t, ConvertFile(src, dst, DefaultSizes))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	entries, err := ReadEntries(data)
	require.NoError(t, err)
	assert.Equal(t, 256, entries[0].Width)
}

func TestConvertFile_Errors(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "out.ico")

	err := ConvertFile(filepath.Join(dir, "missing.png"), dst, nil)
	assert.True(t, os.IsNotExist(err))

	notPNG := filepath.Join(dir, "fake.png")
	require.NoError(t, os.WriteFile(notPNG, []byte("GIF89a"), 0644))
	require.NoError(t, os.WriteFile(dst, []byte("previous"), 0644))

	assert.Error(t, ConvertFile(notPNG, dst, nil))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data), "a failed conversion must not touch dst")
}

func TestReadEntries_Malformed(t *testing.T) {
	_, err := ReadEntries([]byte{0, 0})
	assert.Error(t, err)

	_, err = ReadEntries([]byte{0, 0, 2, 0, 1, 0})
	assert.Error(t, err, "type 2 is a cursor, not an icon")

	_, err = ReadEntries([]byte{0, 0, 1, 0, 1, 0})
	assert.Error(t, err, "directory truncated")
}

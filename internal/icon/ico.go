// Package icon converts a PNG image into a multi-resolution Windows ICO.
//
// Every requested size is rendered onto a transparent square canvas with
// the source centred and its aspect ratio preserved, then stored as a
// PNG-compressed ICO entry (supported since Windows Vista and by every
// version of PyInstaller's icon handling).
package icon

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"sort"

	"golang.org/x/image/draw"
)

// DefaultSizes are the edge lengths Windows Explorer and the taskbar pick
// from at the common DPI settings.
var DefaultSizes = []int{256, 128, 64, 48, 32, 16}

// MaxSize is the largest edge length an ICO directory entry can express.
const MaxSize = 256

const (
	icoHeaderLen = 6
	icoEntryLen  = 16
	icoTypeIcon  = 1
)

// Entry describes one image stored in an ICO file.
type Entry struct {
	Width  int
	Height int
	Size   int // bytes of PNG payload
	Offset int
}

// Encode writes img as an ICO containing one entry per size. Sizes are
// de-duplicated and written largest first.
func Encode(w io.Writer, img image.Image, sizes []int) error {
	sizes, err := normalizeSizes(sizes)
	if err != nil {
		return err
	}

	payloads := make([][]byte, 0, len(sizes))
	for _, size := range sizes {
		var buf bytes.Buffer
		if err := png.Encode(&buf, fitSquare(img, size)); err != nil {
			return fmt.Errorf("encode %dx%d frame: %w", size, size, err)
		}
		payloads = append(payloads, buf.Bytes())
	}

	var out bytes.Buffer
	header := struct {
		Reserved uint16
		Type     uint16
		Count    uint16
	}{0, icoTypeIcon, uint16(len(sizes))}
	if err := binary.Write(&out, binary.LittleEndian, header); err != nil {
		return err
	}

	offset := icoHeaderLen + icoEntryLen*len(sizes)
	for i, size := range sizes {
		entry := struct {
			Width, Height byte
			Colors        byte
			Reserved      byte
			Planes        uint16
			BitCount      uint16
			BytesInRes    uint32
			ImageOffset   uint32
		}{
			Width:       dimByte(size),
			Height:      dimByte(size),
			Planes:      1,
			BitCount:    32,
			BytesInRes:  uint32(len(payloads[i])),
			ImageOffset: uint32(offset),
		}
		if err := binary.Write(&out, binary.LittleEndian, entry); err != nil {
			return err
		}
		offset += len(payloads[i])
	}
	for _, p := range payloads {
		out.Write(p)
	}

	_, err = w.Write(out.Bytes())
	return err
}

// ConvertFile decodes the PNG at src and writes an ICO to dst. An existing
// dst is replaced; on failure no partial dst is left behind.
func ConvertFile(src, dst string, sizes []int) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return fmt.Errorf("decode %s: %w", src, err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, img, sizes); err != nil {
		return err
	}

	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale %s: %w", dst, err)
	}
	return os.WriteFile(dst, buf.Bytes(), 0644)
}

// ReadEntries parses the directory of an ICO file.
func ReadEntries(data []byte) ([]Entry, error) {
	if len(data) < icoHeaderLen {
		return nil, fmt.Errorf("ico: file too short")
	}
	if binary.LittleEndian.Uint16(data[0:2]) != 0 || binary.LittleEndian.Uint16(data[2:4]) != icoTypeIcon {
		return nil, fmt.Errorf("ico: bad header")
	}
	count := int(binary.LittleEndian.Uint16(data[4:6]))
	if len(data) < icoHeaderLen+count*icoEntryLen {
		return nil, fmt.Errorf("ico: truncated directory")
	}

	entries := make([]Entry, 0, count)
	for i := 0; i < count; i++ {
		e := data[icoHeaderLen+i*icoEntryLen:]
		entry := Entry{
			Width:  dimInt(e[0]),
			Height: dimInt(e[1]),
			Size:   int(binary.LittleEndian.Uint32(e[8:12])),
			Offset: int(binary.LittleEndian.Uint32(e[12:16])),
		}
		if entry.Offset+entry.Size > len(data) {
			return nil, fmt.Errorf("ico: entry %d points past end of file", i)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// normalizeSizes validates, de-duplicates and sorts sizes descending.
func normalizeSizes(sizes []int) ([]int, error) {
	if len(sizes) == 0 {
		sizes = DefaultSizes
	}
	seen := make(map[int]bool, len(sizes))
	out := make([]int, 0, len(sizes))
	for _, s := range sizes {
		if s < 1 || s > MaxSize {
			return nil, fmt.Errorf("icon size %d out of range (1-%d)", s, MaxSize)
		}
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out, nil
}

// fitSquare scales img to fit a size×size transparent canvas, centred.
func fitSquare(img image.Image, size int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, size, size))

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return dst
	}

	tw, th := size, size
	if w > h {
		th = max(1, h*size/w)
	} else if h > w {
		tw = max(1, w*size/h)
	}
	x0 := (size - tw) / 2
	y0 := (size - th) / 2

	draw.CatmullRom.Scale(dst, image.Rect(x0, y0, x0+tw, y0+th), img, b, draw.Over, nil)
	return dst
}

// dimByte encodes an edge length for the ICO directory, where 0 means 256.
func dimByte(n int) byte {
	if n >= MaxSize {
		return 0
	}
	return byte(n)
}

func dimInt(b byte) int {
	if b == 0 {
		return MaxSize
	}
	return int(b)
}

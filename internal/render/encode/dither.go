package encode

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
)

var (
	black = color.RGBA{0, 0, 0, 255}
	white = color.RGBA{255, 255, 255, 255}
)

// ditherFloydSteinberg reduces src to pure black and white, diffusing the
// quantisation error with the classic 7/3/5/1 kernel.
func ditherFloydSteinberg(src image.Image) *image.RGBA {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := image.NewRGBA(bounds)

	// luminance 0..1
	buf := make([]float64, w*h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := src.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			buf[y*w+x] = (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 65535.0
		}
	}

	spread := func(x, y int, e, factor float64) {
		if x < 0 || x >= w || y < 0 || y >= h {
			return
		}
		buf[y*w+x] += e * factor
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			old := buf[y*w+x]

			level, c := 0.0, black
			if old >= 0.5 {
				level, c = 1.0, white
			}

			out.SetRGBA(bounds.Min.X+x, bounds.Min.Y+y, c)

			e := old - level

			spread(x+1, y, e, 7.0/16.0)
			spread(x-1, y+1, e, 3.0/16.0)
			spread(x, y+1, e, 5.0/16.0)
			spread(x+1, y+1, e, 1.0/16.0)
		}
	}

	return out
}

const (
	bmpFileHeaderSize = 14
	bmpInfoHeaderSize = 40
	bmpPaletteSize    = 8
)

// encode1bppBMP writes img as a bottom-up 1 bit per pixel BMP with a
// white/black palette. Pixels darker than mid grey become black.
func encode1bppBMP(img image.Image) []byte {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()

	// rows are padded to 4 bytes
	rowSize := ((width+7)/8 + 3) &^ 3
	imageSize := rowSize * height
	pixelOffset := bmpFileHeaderSize + bmpInfoHeaderSize + bmpPaletteSize
	fileSize := pixelOffset + imageSize

	buf := bytes.NewBuffer(make([]byte, 0, fileSize))

	le := func(v any) {
		// writes to a bytes.Buffer never fail
		_ = binary.Write(buf, binary.LittleEndian, v)
	}

	buf.WriteString("BM")
	le(uint32(fileSize))
	le(uint32(0)) // reserved
	le(uint32(pixelOffset))

	le(uint32(bmpInfoHeaderSize))
	le(int32(width))
	le(int32(height))
	le(uint16(1)) // planes
	le(uint16(1)) // bits per pixel
	le(uint32(0)) // BI_RGB
	le(uint32(imageSize))
	le(int32(0)) // x pixels per metre
	le(int32(0)) // y pixels per metre
	le(uint32(2))
	le(uint32(2))

	// palette, BGRA: 0 = white, 1 = black
	buf.Write([]byte{0xff, 0xff, 0xff, 0x00})
	buf.Write([]byte{0x00, 0x00, 0x00, 0x00})

	row := make([]byte, rowSize)

	for y := b.Max.Y - 1; y >= b.Min.Y; y-- {
		clear(row)

		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			lum := (299*r + 587*g + 114*bl) / 1000

			if lum < 0x8000 {
				i := x - b.Min.X
				row[i/8] |= 0x80 >> uint(i%8)
			}
		}

		buf.Write(row)
	}

	return buf.Bytes()
}

var bayer8 = [8][8]uint8{
	{0, 32, 8, 40, 2, 34, 10, 42},
	{48, 16, 56, 24, 50, 18, 58, 26},
	{12, 44, 4, 36, 14, 46, 6, 38},
	{60, 28, 52, 20, 62, 30, 54, 22},
	{3, 35, 11, 43, 1, 33, 9, 41},
	{51, 19, 59, 27, 49, 17, 57, 25},
	{15, 47, 7, 39, 13, 45, 5, 37},
	{63, 31, 55, 23, 61, 29, 53, 21},
}

// ditherOrdered thresholds each pixel against an 8x8 Bayer matrix. It keeps
// flat areas patterned the same way from frame to frame, which e-paper
// panels show with less ghosting than error diffusion.
func ditherOrdered(src image.Image) *image.RGBA {
	bounds := src.Bounds()
	out := image.NewRGBA(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := src.At(x, y).RGBA()

			// 0..63
			level := uint8((299*r + 587*g + 114*b) / 1000 >> 10)

			if level < bayer8[(y-bounds.Min.Y)&7][(x-bounds.Min.X)&7] {
				out.SetRGBA(x, y, black)
			} else {
				out.SetRGBA(x, y, white)
			}
		}
	}

	return out
}

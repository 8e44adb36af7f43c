package render

import (
	"fmt"
	"image/color"
	"math"
	"math/rand/v2"
	"unicode/utf8"
)

const (
	HeaderTitle    = "Scan QR Code"
	HeaderSubtitle = "Point your camera at the code below"
	FooterCaption  = "Powered by Your Custom QR Generator"

	// footer URLs longer than this are cut to FooterURLKeep runes plus "..."
	FooterURLMax  = 50
	FooterURLKeep = 47

	CircleCount = 15
)

var (
	GradientStart = color.RGBA{0x66, 0x7e, 0xea, 0xff}
	GradientEnd   = color.RGBA{0x76, 0x4b, 0xa2, 0xff}
)

// Hex formats c as #rrggbb.
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Layout is the geometry of the QR template for a given QR size. All
// backends draw the same boxes at the same places.
type Layout struct {
	Width  int
	Height int
	QRSize int
}

const (
	headerMargin  = 20
	headerHeight  = 80
	headerRadius  = 8
	qrTop         = 120
	QRPadding     = 30
	qrRadius      = 10
	footerBottom  = 40
	footerSpacing = 24
)

func NewLayout(size int) Layout {
	return Layout{
		Width:  int(math.Round(float64(size) * 1.6)),
		Height: int(math.Round(float64(size) * 1.8)),
		QRSize: size,
	}
}

type Box struct {
	X, Y, W, H float64
	Radius     float64
}

func (l Layout) Header() Box {
	return Box{
		X:      headerMargin,
		Y:      headerMargin,
		W:      float64(l.Width - 2*headerMargin),
		H:      headerHeight,
		Radius: headerRadius,
	}
}

// QRBox is the white container around the code, padding included.
func (l Layout) QRBox() Box {
	side := float64(l.QRSize + 2*QRPadding)

	return Box{
		X:      (float64(l.Width) - side) / 2,
		Y:      qrTop,
		W:      side,
		H:      side,
		Radius: qrRadius,
	}
}

// QROrigin is the top-left corner of the code itself.
func (l Layout) QROrigin() (float64, float64) {
	b := l.QRBox()
	return b.X + QRPadding, b.Y + QRPadding
}

// FooterLines returns the vertical centres of the caption and the URL line.
func (l Layout) FooterLines() (float64, float64) {
	url := float64(l.Height - footerBottom)
	return url - footerSpacing, url
}

// Circle is a decorative disc; X and Y are its centre.
type Circle struct {
	X, Y, R float64
}

func (c Circle) Left() float64     { return c.X - c.R }
func (c Circle) Top() float64      { return c.Y - c.R }
func (c Circle) Diameter() float64 { return 2 * c.R }

// Circles scatters CircleCount discs over a w×h area. The bounding box of
// each disc starts inside the area, like the absolutely positioned divs of
// the HTML template.
func Circles(rng *rand.Rand, w, h int) []Circle {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	circles := make([]Circle, CircleCount)

	for i := range circles {
		x := rng.Float64() * float64(w)
		y := rng.Float64() * float64(h)
		r := rng.Float64()*25 + 8

		circles[i] = Circle{X: x + r, Y: y + r, R: r}
	}

	return circles
}

// FooterURL shortens long URLs for the footer line.
func FooterURL(url string) string {
	if utf8.RuneCountInString(url) <= FooterURLMax {
		return url
	}

	runes := []rune(url)
	return string(runes[:FooterURLKeep]) + "..."
}

// Package canvas draws the QR template and the text card with 2-D drawing
// primitives, without a browser.
package canvas

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"math/rand/v2"

	"qrcard/internal/render"
	"qrcard/internal/render/qr"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
)

type Backend struct {
	source qr.Source

	// Rand seeds the decorative circles. nil picks a fresh source per render.
	Rand func() *rand.Rand
}

func New(source qr.Source) *Backend {
	if source == nil {
		source = qr.NewLocal()
	}

	return &Backend{
		source: source,
	}
}

func (b *Backend) Name() string {
	return "canvas"
}

func (b *Backend) Render(ctx context.Context, req *render.Request) (*render.Result, error) {
	var dc *gg.Context

	switch req.Kind {
	case render.KindQR:
		l := render.NewLayout(req.Size)

		code, err := b.source.Image(ctx, req.URL, l.QRSize)
		if err != nil {
			return nil, fmt.Errorf("qr image: %w", err)
		}

		dc = gg.NewContext(l.Width, l.Height)
		DrawBackground(dc, b.circles(l.Width, l.Height))
		drawQRTemplate(dc, l, code)
		DrawQRText(dc, l, req.URL)

	case render.KindCard:
		dc = gg.NewContext(req.Width, req.Height)
		DrawBackground(dc, b.circles(req.Width, req.Height))
		DrawCardText(dc, req)

	default:
		return nil, render.ErrUnsupported
	}

	var buf bytes.Buffer

	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("png encode: %w", err)
	}

	return &render.Result{
		Data:        buf.Bytes(),
		ContentType: render.ContentTypePNG,
	}, nil
}

func (b *Backend) circles(w, h int) []render.Circle {
	var rng *rand.Rand

	if b.Rand != nil {
		rng = b.Rand()
	}

	return render.Circles(rng, w, h)
}

// DrawBackground fills the whole context with the diagonal gradient and the
// translucent circles.
func DrawBackground(dc *gg.Context, circles []render.Circle) {
	w, h := float64(dc.Width()), float64(dc.Height())

	g := gg.NewLinearGradient(0, 0, w, h)
	g.AddColorStop(0, render.GradientStart)
	g.AddColorStop(1, render.GradientEnd)

	dc.SetFillStyle(g)
	dc.DrawRectangle(0, 0, w, h)
	dc.Fill()

	dc.SetRGBA(1, 1, 1, 0.1)

	for _, c := range circles {
		dc.DrawCircle(c.X, c.Y, c.R)
		dc.Fill()
	}
}

func drawQRTemplate(dc *gg.Context, l render.Layout, code image.Image) {
	header := l.Header()

	dc.SetRGBA(1, 1, 1, 0.95)
	dc.DrawRoundedRectangle(header.X, header.Y, header.W, header.H, header.Radius)
	dc.Fill()

	box := l.QRBox()

	// soft drop shadow, 10px below the box
	for i := 3; i >= 1; i-- {
		spread := float64(i) * 4

		dc.SetRGBA(0, 0, 0, 0.07)
		dc.DrawRoundedRectangle(box.X-spread, box.Y+10-spread, box.W+2*spread, box.H+2*spread, box.Radius+spread)
		dc.Fill()
	}

	dc.SetRGB(1, 1, 1)
	dc.DrawRoundedRectangle(box.X, box.Y, box.W, box.H, box.Radius)
	dc.Fill()

	x, y := l.QROrigin()
	dc.DrawImage(fit(code, l.QRSize), int(x), int(y))
}

// fit scales src to size×size. Nearest neighbour keeps module edges sharp.
func fit(src image.Image, size int) image.Image {
	b := src.Bounds()

	if b.Dx() == size && b.Dy() == size {
		return src
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	return dst
}

// DrawQRText writes the header title and subtitle and the footer lines.
func DrawQRText(dc *gg.Context, l render.Layout, url string) {
	header := l.Header()
	cx := float64(l.Width) / 2

	dc.SetFontFace(bold(28))
	dc.SetHexColor("#333333")
	dc.DrawStringAnchored(render.HeaderTitle, cx, header.Y+32, 0.5, 0.5)

	dc.SetFontFace(regular(16))
	dc.SetHexColor("#666666")
	dc.DrawStringAnchored(render.HeaderSubtitle, cx, header.Y+60, 0.5, 0.5)

	caption, link := l.FooterLines()

	dc.SetFontFace(regular(14))
	dc.SetRGB(1, 1, 1)
	dc.DrawStringAnchored(render.FooterCaption, cx, caption, 0.5, 0.5)

	dc.SetFontFace(regular(12))
	dc.SetRGBA(1, 1, 1, 0.8)
	dc.DrawStringAnchored(render.FooterURL(url), cx, link, 0.5, 0.5)
}

// DrawCardText centres the title and subtitle of a text card.
func DrawCardText(dc *gg.Context, req *render.Request) {
	w, h := float64(dc.Width()), float64(dc.Height())
	maxWidth := w - 80

	dc.SetFontFace(bold(48))
	dc.SetRGB(1, 1, 1)
	dc.DrawStringWrapped(req.Title, w/2, h/2-20, 0.5, 1, maxWidth, 1.3, gg.AlignCenter)

	dc.SetFontFace(regular(24))
	dc.SetRGBA(1, 1, 1, 0.85)
	dc.DrawStringWrapped(req.Subtitle, w/2, h/2+20, 0.5, 0, maxWidth, 1.4, gg.AlignCenter)
}

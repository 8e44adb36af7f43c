// Package svg builds the template as an SVG document and converts it to PNG,
// remotely through a conversion service or locally with oksvg.
package svg

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"image"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"text/template"
	"time"

	"qrcard/internal/render"
	"qrcard/internal/render/canvas"
	"qrcard/internal/render/qr"

	"github.com/fogleman/gg"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

//go:embed templates/*
var templateFS embed.FS

var funcs = template.FuncMap{
	"num": func(v float64) string {
		return fmt.Sprintf("%.2f", v)
	},
}

var (
	qrTpl   = template.Must(template.New("qr.svg").Funcs(funcs).ParseFS(templateFS, "templates/qr.svg"))
	cardTpl = template.Must(template.New("card.svg").Funcs(funcs).ParseFS(templateFS, "templates/card.svg"))
)

const maxImageBytes = 10 << 20

type Options struct {
	// ConverterURL receives the SVG document as a POST body and answers
	// with PNG bytes. Empty skips straight to local rasterising.
	ConverterURL string

	Client *http.Client
	Logger *slog.Logger
}

type Backend struct {
	opts Options

	links qr.Linker
	local *qr.Local

	// Rand seeds the decorative circles. nil picks a fresh source per render.
	Rand func() *rand.Rand
}

func New(opts Options, links qr.Linker) *Backend {
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 10 * time.Second}
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if links == nil {
		links = qr.NewRemote(opts.Client, "")
	}

	return &Backend{
		opts:  opts,
		links: links,
		local: qr.NewLocal(),
	}
}

func (b *Backend) Name() string {
	return "svg"
}

// Render never fails on conversion: when neither the service nor the local
// rasteriser produce a PNG, the SVG document itself is returned.
func (b *Backend) Render(ctx context.Context, req *render.Request) (*render.Result, error) {
	doc, err := b.newDocument(req)
	if err != nil {
		return nil, err
	}

	linked, err := doc.execute()
	if err != nil {
		return nil, err
	}

	if b.opts.ConverterURL != "" {
		data, err := b.convert(ctx, linked)
		if err == nil {
			return &render.Result{Data: data, ContentType: render.ContentTypePNG}, nil
		}

		b.opts.Logger.Warn("svg conversion failed", "error", err)
	}

	data, err := b.rasterize(req, doc)
	if err == nil {
		return &render.Result{Data: data, ContentType: render.ContentTypePNG}, nil
	}

	b.opts.Logger.Warn("svg rasterize failed", "error", err)

	return &render.Result{Data: linked, ContentType: render.ContentTypeSVG}, nil
}

func (b *Backend) convert(ctx context.Context, doc []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.opts.ConverterURL, bytes.NewReader(doc))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", render.ContentTypeSVG)
	req.Header.Set("Accept", render.ContentTypePNG)

	resp, err := b.opts.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("converter: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("converter status: %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("converter read: %w", err)
	}

	if ct := http.DetectContentType(data); ct != render.ContentTypePNG {
		return nil, fmt.Errorf("converter returned %s: %w", ct, render.ErrNotImage)
	}

	return data, nil
}

// rasterize draws the vector variant of doc with oksvg, which has no text
// or image support: QR modules become a path and the text is drawn on top.
func (b *Backend) rasterize(req *render.Request, doc *document) ([]byte, error) {
	vector := *doc
	vector.Text = false
	vector.ImageHref = ""

	if req.Kind == render.KindQR {
		modules, err := b.local.Modules(req.URL)
		if err != nil {
			return nil, err
		}

		vector.Modules = modulePath(modules, vector.QRX, vector.QRY, float64(vector.QRSize))
	}

	src, err := vector.execute()
	if err != nil {
		return nil, err
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(src), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}

	w, h := doc.Width, doc.Height
	icon.SetTarget(0, 0, float64(w), float64(h))

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)

	dc := gg.NewContextForRGBA(img)

	if req.Kind == render.KindQR {
		canvas.DrawQRText(dc, render.NewLayout(req.Size), req.URL)
	} else {
		canvas.DrawCardText(dc, req)
	}

	var buf bytes.Buffer

	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("png encode: %w", err)
	}

	return buf.Bytes(), nil
}

// modulePath turns a module grid into one SVG path, merging horizontal runs
// of dark modules.
func modulePath(modules [][]bool, x0, y0, size float64) string {
	if len(modules) == 0 {
		return ""
	}

	scale := size / float64(len(modules))

	var sb strings.Builder

	for y, row := range modules {
		for x := 0; x < len(row); {
			if !row[x] {
				x++
				continue
			}

			start := x
			for x < len(row) && row[x] {
				x++
			}

			w := float64(x-start) * scale
			fmt.Fprintf(&sb, "M%.2f %.2fh%.2fv%.2fh%.2fz", x0+float64(start)*scale, y0+float64(y)*scale, w, scale, -w)
		}
	}

	return sb.String()
}

type document struct {
	tpl *template.Template

	Width  int
	Height int
	From   string
	To     string

	Circles []render.Circle

	Header render.Box
	Box    render.Box
	QRX    float64
	QRY    float64
	QRSize int

	ImageHref string
	Modules   string

	Text      bool
	CenterX   float64
	TitleY    float64
	SubtitleY float64
	CaptionY  float64
	FooterY   float64

	Title     string
	Subtitle  string
	Caption   string
	FooterURL string
}

func (b *Backend) newDocument(req *render.Request) (*document, error) {
	var rng *rand.Rand

	if b.Rand != nil {
		rng = b.Rand()
	}

	switch req.Kind {
	case render.KindQR:
		l := render.NewLayout(req.Size)
		header := l.Header()
		qrX, qrY := l.QROrigin()
		caption, footer := l.FooterLines()

		return &document{
			tpl: qrTpl,

			Width:  l.Width,
			Height: l.Height,
			From:   render.Hex(render.GradientStart),
			To:     render.Hex(render.GradientEnd),

			Circles: render.Circles(rng, l.Width, l.Height),

			Header: header,
			Box:    l.QRBox(),
			QRX:    qrX,
			QRY:    qrY,
			QRSize: l.QRSize,

			ImageHref: b.links.URL(req.URL, l.QRSize),

			Text:      true,
			CenterX:   float64(l.Width) / 2,
			TitleY:    header.Y + 32,
			SubtitleY: header.Y + 60,
			CaptionY:  caption,
			FooterY:   footer,

			Title:     render.HeaderTitle,
			Subtitle:  render.HeaderSubtitle,
			Caption:   render.FooterCaption,
			FooterURL: render.FooterURL(req.URL),
		}, nil

	case render.KindCard:
		return &document{
			tpl: cardTpl,

			Width:  req.Width,
			Height: req.Height,
			From:   render.Hex(render.GradientStart),
			To:     render.Hex(render.GradientEnd),

			Circles: render.Circles(rng, req.Width, req.Height),

			Text:      true,
			CenterX:   float64(req.Width) / 2,
			TitleY:    float64(req.Height)/2 - 20,
			SubtitleY: float64(req.Height)/2 + 40,

			Title:    req.Title,
			Subtitle: req.Subtitle,
		}, nil
	}

	return nil, render.ErrUnsupported
}

func (d *document) execute() ([]byte, error) {
	var buf bytes.Buffer

	if err := d.tpl.Execute(&buf, d); err != nil {
		return nil, fmt.Errorf("unable render svg template: %w", err)
	}

	return buf.Bytes(), nil
}

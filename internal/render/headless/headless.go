// Package headless renders the HTML templates in a headless Chrome and
// screenshots the result.
package headless

import (
	"bytes"
	"context"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"image/png"
	"log/slog"
	"math/rand/v2"
	"time"

	"qrcard/internal/render"
	"qrcard/internal/render/qr"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

//go:embed templates/*
var templateFS embed.FS

var (
	qrTpl   = template.Must(template.ParseFS(templateFS, "templates/qr.html"))
	cardTpl = template.Must(template.ParseFS(templateFS, "templates/card.html"))
)

// Launcher starts a browser allocator. The returned cancel func must tear
// the browser process down.
type Launcher func(ctx context.Context, opts ...chromedp.ExecAllocatorOption) (context.Context, context.CancelFunc)

type Options struct {
	ExecPath  string
	NoSandbox bool
	Timeout   time.Duration
	Logger    *slog.Logger
}

type Backend struct {
	opts   Options
	source qr.Source

	// Launch defaults to chromedp.NewExecAllocator.
	Launch Launcher

	// Rand seeds the decorative circles. nil picks a fresh source per render.
	Rand func() *rand.Rand
}

func New(opts Options, source qr.Source) *Backend {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if source == nil {
		source = qr.NewRemote(nil, "")
	}

	return &Backend{
		opts:   opts,
		source: source,

		Launch: chromedp.NewExecAllocator,
	}
}

func (b *Backend) Name() string {
	return "headless"
}

func (b *Backend) allocatorOptions(width, height int) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.WindowSize(width, height),
	)

	if b.opts.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}

	if b.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.opts.ExecPath))
	}

	return opts
}

// Render starts a dedicated browser, loads the page and captures the template
// area. The browser is torn down before Render returns, whatever the outcome.
func (b *Backend) Render(ctx context.Context, req *render.Request) (*render.Result, error) {
	html, err := b.document(ctx, req)
	if err != nil {
		return nil, err
	}

	width, height := req.Dimensions()

	ctx, cancel := context.WithTimeout(ctx, b.opts.Timeout)
	defer cancel()

	allocCtx, allocCancel := b.Launch(ctx, b.allocatorOptions(width, height)...)
	defer allocCancel()

	// Only chromedp.Cancel closes the tab. It waits on the same teardown as
	// the cancel func, and a second wait after the first drained it never
	// returns. allocCancel kills whatever is left.
	tabCtx, _ := chromedp.NewContext(allocCtx)

	defer func() {
		if err := chromedp.Cancel(tabCtx); err != nil {
			b.opts.Logger.Debug("close browser", "error", err)
		}
	}()

	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString(html)

	var shot []byte

	err = chromedp.Run(tabCtx,
		chromedp.EmulateViewport(int64(width), int64(height)),
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("#template"),
		chromedp.Poll(`Array.from(document.images).every(img => img.complete)`, nil),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error

			shot, err = page.CaptureScreenshot().
				WithFormat(page.CaptureScreenshotFormatPng).
				WithClip(&page.Viewport{
					X:      0,
					Y:      0,
					Width:  float64(width),
					Height: float64(height),
					Scale:  1,
				}).
				Do(ctx)

			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("chromedp run: %w", err)
	}

	if len(shot) == 0 {
		return nil, render.ErrEmptyImage
	}

	return &render.Result{
		Data:        shot,
		ContentType: render.ContentTypePNG,
	}, nil
}

type qrPage struct {
	Width   int
	Height  int
	QRSize  int
	Circles []render.Circle

	ImageSrc template.URL

	Title     string
	Subtitle  string
	Caption   string
	FooterURL string
}

type cardPage struct {
	Width   int
	Height  int
	Circles []render.Circle

	Title    string
	Subtitle string
}

func (b *Backend) document(ctx context.Context, req *render.Request) ([]byte, error) {
	var buf bytes.Buffer

	switch req.Kind {
	case render.KindQR:
		l := render.NewLayout(req.Size)

		src, err := b.imageSource(ctx, req.URL, l.QRSize)
		if err != nil {
			return nil, err
		}

		data := qrPage{
			Width:   l.Width,
			Height:  l.Height,
			QRSize:  l.QRSize,
			Circles: render.Circles(b.rng(), l.Width, l.Height),

			ImageSrc: src,

			Title:     render.HeaderTitle,
			Subtitle:  render.HeaderSubtitle,
			Caption:   render.FooterCaption,
			FooterURL: render.FooterURL(req.URL),
		}

		if err := qrTpl.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("unable render qr template: %w", err)
		}

	case render.KindCard:
		data := cardPage{
			Width:   req.Width,
			Height:  req.Height,
			Circles: render.Circles(b.rng(), req.Width, req.Height),

			Title:    req.Title,
			Subtitle: req.Subtitle,
		}

		if err := cardTpl.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("unable render card template: %w", err)
		}

	default:
		return nil, render.ErrUnsupported
	}

	return buf.Bytes(), nil
}

// imageSource links remote QR images directly so the browser loads them,
// and inlines everything else as a data URL.
func (b *Backend) imageSource(ctx context.Context, data string, size int) (template.URL, error) {
	if l, ok := b.source.(qr.Linker); ok {
		return template.URL(l.URL(data, size)), nil
	}

	img, err := b.source.Image(ctx, data, size)
	if err != nil {
		return "", fmt.Errorf("qr image: %w", err)
	}

	var buf bytes.Buffer

	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("qr png encode: %w", err)
	}

	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}

func (b *Backend) rng() *rand.Rand {
	if b.Rand == nil {
		return nil
	}

	return b.Rand()
}

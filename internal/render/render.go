// Package render holds the request and result types shared by every image
// backend, plus the geometry of the QR template.
package render

import (
	"context"
	"errors"
)

const (
	ContentTypePNG = "image/png"
	ContentTypeSVG = "image/svg+xml"
	ContentTypeBMP = "image/bmp"
)

var (
	// ErrUnsupported is returned by a backend that cannot render the request kind.
	ErrUnsupported = errors.New("request kind not supported by backend")

	// ErrEmptyImage is returned when a backend produced no bytes.
	ErrEmptyImage = errors.New("empty image")

	// ErrNotImage is returned when an upstream answered with something other
	// than an image.
	ErrNotImage = errors.New("not an image")
)

type Kind int

const (
	KindQR Kind = iota
	KindCard
)

func (k Kind) String() string {
	switch k {
	case KindQR:
		return "qr"
	case KindCard:
		return "card"
	}
	return "unknown"
}

const (
	DefaultSize = 300
	MinSize     = 50
	MaxSize     = 1000

	DefaultWidth  = 600
	DefaultHeight = 800
	MinDimension  = 100
	MaxDimension  = 2000

	DefaultTitle    = "Hello"
	DefaultSubtitle = "Generated with HTML"
)

// Request is one image to produce. For KindQR only URL and Size are used,
// for KindCard only Title, Subtitle, Width and Height.
type Request struct {
	Kind Kind

	URL  string
	Size int

	Title    string
	Subtitle string
	Width    int
	Height   int
}

// NewQRRequest returns a QR request with the size clamped into range.
func NewQRRequest(url string, size int) *Request {
	return &Request{
		Kind: KindQR,
		URL:  url,
		Size: clamp(size, DefaultSize, MinSize, MaxSize),
	}
}

// NewCardRequest returns a text card request with defaults applied.
func NewCardRequest(title, subtitle string, width, height int) *Request {
	if title == "" {
		title = DefaultTitle
	}

	if subtitle == "" {
		subtitle = DefaultSubtitle
	}

	return &Request{
		Kind:     KindCard,
		Title:    title,
		Subtitle: subtitle,
		Width:    clamp(width, DefaultWidth, MinDimension, MaxDimension),
		Height:   clamp(height, DefaultHeight, MinDimension, MaxDimension),
	}
}

// Dimensions returns the pixel size of the rendered image.
func (r *Request) Dimensions() (int, int) {
	if r.Kind == KindCard {
		return r.Width, r.Height
	}

	l := NewLayout(r.Size)
	return l.Width, l.Height
}

type Result struct {
	Data        []byte
	ContentType string
}

// Backend produces the final image for a request.
type Backend interface {
	Name() string
	Render(ctx context.Context, req *Request) (*Result, error)
}

func clamp(v, def, lo, hi int) int {
	if v <= 0 {
		return def
	}

	return max(lo, min(v, hi))
}

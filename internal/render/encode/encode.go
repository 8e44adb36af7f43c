// Package encode converts rendered images into the response format the
// client asked for.
package encode

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"strings"

	"qrcard/internal/render"

	"golang.org/x/image/bmp"
)

type Format string

const (
	FormatPNG  Format = "png"
	FormatBMP  Format = "bmp"
	FormatMono Format = "mono"

	// FormatOrdered is FormatMono with ordered instead of error diffusion
	// dithering.
	FormatOrdered Format = "ordered"
)

// ParseFormat maps a query value to a format. Unknown values fall back to PNG.
func ParseFormat(s string) Format {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatBMP:
		return FormatBMP
	case FormatMono:
		return FormatMono
	case FormatOrdered:
		return FormatOrdered
	}

	return FormatPNG
}

// Encode returns res in format f. SVG documents are vector output and are
// passed through untouched, as are results already in the requested format.
func Encode(res *render.Result, f Format) (*render.Result, error) {
	if res.ContentType == render.ContentTypeSVG {
		return res, nil
	}

	if f == FormatPNG && res.ContentType == render.ContentTypePNG {
		return res, nil
	}

	img, _, err := image.Decode(bytes.NewReader(res.Data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", res.ContentType, err)
	}

	switch f {
	case FormatBMP:
		var buf bytes.Buffer

		if err := bmp.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("bmp encode: %w", err)
		}

		return &render.Result{Data: buf.Bytes(), ContentType: render.ContentTypeBMP}, nil

	case FormatMono:
		data := encode1bppBMP(ditherFloydSteinberg(img))
		return &render.Result{Data: data, ContentType: render.ContentTypeBMP}, nil

	case FormatOrdered:
		data := encode1bppBMP(ditherOrdered(img))
		return &render.Result{Data: data, ContentType: render.ContentTypeBMP}, nil
	}

	var buf bytes.Buffer

	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("png encode: %w", err)
	}

	return &render.Result{Data: buf.Bytes(), ContentType: render.ContentTypePNG}, nil
}

package canvas

import (
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	regularFont = mustParseFont(goregular.TTF)
	boldFont    = mustParseFont(gobold.TTF)
)

func mustParseFont(ttf []byte) *truetype.Font {
	f, err := truetype.Parse(ttf)
	if err != nil {
		panic(err)
	}

	return f
}

func regular(points float64) font.Face {
	return truetype.NewFace(regularFont, &truetype.Options{Size: points})
}

func bold(points float64) font.Face {
	return truetype.NewFace(boldFont, &truetype.Options{Size: points})
}

// Package backends constructs render backends by name.
package backends

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"qrcard/internal/render"
	"qrcard/internal/render/canvas"
	"qrcard/internal/render/headless"
	"qrcard/internal/render/qr"
	"qrcard/internal/render/remote"
	"qrcard/internal/render/svg"
)

type Options struct {
	Client *http.Client
	Logger *slog.Logger

	// Source supplies QR bitmaps to the canvas and headless backends.
	Source qr.Source

	// Links addresses remote QR images for the svg backend.
	Links qr.Linker

	ChromeExecPath  string
	ChromeNoSandbox bool
	RenderTimeout   time.Duration

	ConverterURL string
}

type constructor func(opts Options) render.Backend

var constructors = map[string]constructor{
	"remote": func(opts Options) render.Backend {
		return remote.New(opts.Client, "")
	},

	"headless": func(opts Options) render.Backend {
		return headless.New(headless.Options{
			ExecPath:  opts.ChromeExecPath,
			NoSandbox: opts.ChromeNoSandbox,
			Timeout:   opts.RenderTimeout,
			Logger:    opts.Logger,
		}, opts.Source)
	},

	"canvas": func(opts Options) render.Backend {
		return canvas.New(opts.Source)
	},

	"svg": func(opts Options) render.Backend {
		return svg.New(svg.Options{
			ConverterURL: opts.ConverterURL,
			Client:       opts.Client,
			Logger:       opts.Logger,
		}, opts.Links)
	},
}

// New returns the backend registered under name.
func New(name string, opts Options) (render.Backend, error) {
	ctor, ok := constructors[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("render backend %q not found: available backends=%v", name, Names())
	}

	return ctor(opts), nil
}

// Names lists the registered backend names in order.
func Names() []string {
	names := make([]string, 0, len(constructors))

	for name := range constructors {
		names = append(names, name)
	}

	slices.Sort(names)
	return names
}

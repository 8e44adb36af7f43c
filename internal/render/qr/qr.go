// Package qr produces QR code bitmaps, either locally or from the public
// qrserver API, and builds the URLs of the public QR image services.
package qr

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"time"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	ServerEndpoint = "https://api.qrserver.com/v1/create-qr-code/"
	ChartEndpoint  = "https://quickchart.io/chart"
)

// Source returns a square QR code image of about size pixels for data.
type Source interface {
	Image(ctx context.Context, data string, size int) (image.Image, error)
}

// Linker is implemented by sources whose images are addressable by URL, so
// a browser can load them directly.
type Linker interface {
	URL(data string, size int) string
}

// ServerURL is the qrserver image URL for data.
func ServerURL(endpoint, data string, size int) string {
	if endpoint == "" {
		endpoint = ServerEndpoint
	}

	return fmt.Sprintf("%s?size=%dx%d&data=%s", endpoint, size, size, url.QueryEscape(data))
}

type chartColor struct {
	Dark  string `json:"dark"`
	Light string `json:"light"`
}

type chartOptions struct {
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Margin int        `json:"margin"`
	Color  chartColor `json:"color"`
}

type chartConfig struct {
	Type    string       `json:"type"`
	Data    string       `json:"data"`
	Options chartOptions `json:"options"`
}

// ChartURL is the quickchart QR chart URL for data.
func ChartURL(endpoint, data string, size int) string {
	if endpoint == "" {
		endpoint = ChartEndpoint
	}

	c := chartConfig{
		Type: "qr",
		Data: data,
		Options: chartOptions{
			Width:  size,
			Height: size,
			Margin: 2,
			Color: chartColor{
				Dark:  "#000000",
				Light: "#ffffff",
			},
		},
	}

	// a struct of strings and ints always marshals
	b, _ := json.Marshal(c)

	return endpoint + "?c=" + url.QueryEscape(string(b))
}

// Local encodes QR codes in process.
type Local struct {
	Level qrcode.RecoveryLevel
}

func NewLocal() *Local {
	return &Local{
		Level: qrcode.Medium,
	}
}

func (l *Local) Image(ctx context.Context, data string, size int) (image.Image, error) {
	q, err := qrcode.New(data, l.Level)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}

	return q.Image(size), nil
}

// Modules returns the module grid of data, quiet zone included. true is a
// dark module.
func (l *Local) Modules(data string) ([][]bool, error) {
	q, err := qrcode.New(data, l.Level)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}

	return q.Bitmap(), nil
}

// Remote fetches QR codes from a qrserver compatible endpoint.
type Remote struct {
	Client   *http.Client
	Endpoint string
}

func NewRemote(client *http.Client, endpoint string) *Remote {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	if endpoint == "" {
		endpoint = ServerEndpoint
	}

	return &Remote{
		Client:   client,
		Endpoint: endpoint,
	}
}

func (r *Remote) URL(data string, size int) string {
	return ServerURL(r.Endpoint, data, size)
}

func (r *Remote) Image(ctx context.Context, data string, size int) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL(data, size), nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qr fetch: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("qr fetch status: %s", resp.Status)
	}

	img, _, err := image.Decode(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("qr decode: %w", err)
	}

	return img, nil
}

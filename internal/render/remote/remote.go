// Package remote renders QR codes by fetching them from the quickchart API
// and serving the bytes back.
package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"qrcard/internal/render"
	"qrcard/internal/render/qr"
)

const maxImageBytes = 10 << 20

type Backend struct {
	client   *http.Client
	endpoint string
}

func New(client *http.Client, endpoint string) *Backend {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	if endpoint == "" {
		endpoint = qr.ChartEndpoint
	}

	return &Backend{
		client:   client,
		endpoint: endpoint,
	}
}

func (b *Backend) Name() string {
	return "remote"
}

func (b *Backend) Render(ctx context.Context, req *render.Request) (*render.Result, error) {
	if req.Kind != render.KindQR {
		return nil, render.ErrUnsupported
	}

	r, err := http.NewRequestWithContext(ctx, http.MethodGet, qr.ChartURL(b.endpoint, req.URL, req.Size), nil)
	if err != nil {
		return nil, err
	}

	resp, err := b.client.Do(r)
	if err != nil {
		return nil, fmt.Errorf("chart fetch: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chart status: %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("chart read: %w", err)
	}

	if len(data) == 0 {
		return nil, render.ErrEmptyImage
	}

	ct := http.DetectContentType(data)

	if !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("chart returned %s: %w", ct, render.ErrNotImage)
	}

	return &render.Result{
		Data:        data,
		ContentType: ct,
	}, nil
}

package remote_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"qrcard/internal/render"
	"qrcard/internal/render/remote"

	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8))))

	return buf.Bytes()
}

func TestRender(t *testing.T) {
	body := pngBytes(t)

	var chart struct {
		Type string
		Data string
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.Unmarshal([]byte(r.URL.Query().Get("c")), &chart)
		w.Write(body)
	}))
	defer server.Close()

	b := remote.New(server.Client(), server.URL)
	require.Equal(t, "remote", b.Name())

	res, err := b.Render(context.Background(), render.NewQRRequest("https://example.org", 0))
	require.NoError(t, err)

	require.Equal(t, body, res.Data)
	require.Equal(t, render.ContentTypePNG, res.ContentType)
	require.Equal(t, "qr", chart.Type)
	require.Equal(t, "https://example.org", chart.Data)
}

func TestRenderStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := remote.New(server.Client(), server.URL).Render(context.Background(), render.NewQRRequest("x", 0))
	require.ErrorContains(t, err, "503")
}

func TestRenderEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	_, err := remote.New(server.Client(), server.URL).Render(context.Background(), render.NewQRRequest("x", 0))
	require.ErrorIs(t, err, render.ErrEmptyImage)
}

func TestRenderCardUnsupported(t *testing.T) {
	_, err := remote.New(nil, "").Render(context.Background(), render.NewCardRequest("", "", 0, 0))
	require.ErrorIs(t, err, render.ErrUnsupported)
}

func TestRenderRejectsNonImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>rate limited</html>"))
	}))
	defer server.Close()

	_, err := remote.New(server.Client(), server.URL).Render(context.Background(), render.NewQRRequest("x", 0))
	require.ErrorIs(t, err, render.ErrNotImage)
	require.ErrorContains(t, err, "text/html")
}

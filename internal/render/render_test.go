package render_test

import (
	"context"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"qrcard/internal/render"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestNewQRRequestDefaults(t *testing.T) {
	require.Equal(t, render.DefaultSize, render.NewQRRequest("https://example.org", 0).Size)
	require.Equal(t, render.DefaultSize, render.NewQRRequest("https://example.org", -5).Size)
	require.Equal(t, render.MinSize, render.NewQRRequest("https://example.org", 10).Size)
	require.Equal(t, render.MaxSize, render.NewQRRequest("https://example.org", 5000).Size)
	require.Equal(t, 420, render.NewQRRequest("https://example.org", 420).Size)
}

func TestNewCardRequestDefaults(t *testing.T) {
	req := render.NewCardRequest("", "", 0, 0)

	require.Equal(t, render.KindCard, req.Kind)
	require.Equal(t, "Hello", req.Title)
	require.Equal(t, "Generated with HTML", req.Subtitle)

	w, h := req.Dimensions()
	require.Equal(t, 600, w)
	require.Equal(t, 800, h)
}

func TestLayout(t *testing.T) {
	l := render.NewLayout(300)

	require.Equal(t, 480, l.Width)
	require.Equal(t, 540, l.Height)

	box := l.QRBox()
	require.Equal(t, 360.0, box.W)
	require.Equal(t, 60.0, box.X)
	require.Equal(t, 120.0, box.Y)

	x, y := l.QROrigin()
	require.Equal(t, 90.0, x)
	require.Equal(t, 150.0, y)

	header := l.Header()
	require.Equal(t, 440.0, header.W)
}

func TestCirclesStayInsideTemplate(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	circles := render.Circles(rng, 480, 540)

	require.Len(t, circles, render.CircleCount)

	for _, c := range circles {
		require.GreaterOrEqual(t, c.R, 8.0)
		require.Less(t, c.R, 33.0)
		require.GreaterOrEqual(t, c.Left(), 0.0)
		require.Less(t, c.Left(), 480.0)
		require.GreaterOrEqual(t, c.Top(), 0.0)
		require.Less(t, c.Top(), 540.0)
	}
}

func TestFooterURL(t *testing.T) {
	short := "https://example.org/a"
	require.Equal(t, short, render.FooterURL(short))

	exact := strings.Repeat("a", 50)
	require.Equal(t, exact, render.FooterURL(exact))

	long := "https://example.com/very-long-url-path/that/should/be/truncated"
	got := render.FooterURL(long)

	require.Equal(t, long[:47]+"...", got)
	require.Len(t, got, 50)
}

func TestHex(t *testing.T) {
	require.Equal(t, "#667eea", render.Hex(render.GradientStart))
	require.Equal(t, "#764ba2", render.Hex(render.GradientEnd))
}

type stubBackend struct {
	calls int
}

func (b *stubBackend) Name() string { return "stub" }

func (b *stubBackend) Render(ctx context.Context, req *render.Request) (*render.Result, error) {
	b.calls++
	return &render.Result{Data: []byte("x"), ContentType: render.ContentTypePNG}, nil
}

func TestLimitPassesThrough(t *testing.T) {
	stub := &stubBackend{}
	b := render.Limit(rate.NewLimiter(rate.Inf, 1), stub)

	require.Equal(t, "stub", b.Name())

	_, err := b.Render(context.Background(), render.NewQRRequest("https://example.org", 0))
	require.NoError(t, err)
	require.Equal(t, 1, stub.calls)
}

func TestLimitHonoursContext(t *testing.T) {
	stub := &stubBackend{}
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	b := render.Limit(limiter, stub)

	req := render.NewQRRequest("https://example.org", 0)

	_, err := b.Render(context.Background(), req)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = b.Render(ctx, req)
	require.Error(t, err)
	require.Equal(t, 1, stub.calls)
}

func TestLimitNil(t *testing.T) {
	stub := &stubBackend{}
	require.Same(t, render.Backend(stub), render.Limit(nil, stub))
}

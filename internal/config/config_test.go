package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"qrcard/internal/config"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := config.Default()

	require.NoError(t, c.Validate())
	require.Equal(t, ":8080", c.Address)
	require.Equal(t, "canvas", c.Backend)
	require.Equal(t, "remote", c.Fallback)
	require.True(t, c.RedirectFallback)
	require.Equal(t, "local", c.QRSource)
	require.Equal(t, 15*time.Second, c.RenderTimeout)
	require.Nil(t, c.Limiter())
}

func TestDecodeEmpty(t *testing.T) {
	c, err := config.Decode(strings.NewReader(""))
	require.NoError(t, err)
	require.Equal(t, config.Default(), c)
}

func TestParse(t *testing.T) {
	t.Setenv("QRCARD_CHROME", "/opt/chrome/chrome")

	path := filepath.Join(t.TempDir(), "config.yaml")

	data := `
address: ":9090"
backend: headless
fallback: svg
redirect_fallback: false
qr_source: remote
render_timeout: 5s
rate_limit: 2.5
rate_burst: 4
chrome:
  exec_path: ${QRCARD_CHROME}
  no_sandbox: true
svg:
  converter_url: http://converter:3000/convert
log:
  level: debug
  format: json
`

	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	c, err := config.Parse(path)
	require.NoError(t, err)

	require.Equal(t, ":9090", c.Address)
	require.Equal(t, "headless", c.Backend)
	require.Equal(t, "svg", c.Fallback)
	require.False(t, c.RedirectFallback)
	require.Equal(t, "remote", c.QRSource)
	require.Equal(t, 5*time.Second, c.RenderTimeout)
	require.Equal(t, "/opt/chrome/chrome", c.Chrome.ExecPath)
	require.True(t, c.Chrome.NoSandbox)
	require.Equal(t, "http://converter:3000/convert", c.SVG.ConverterURL)

	l := c.Limiter()
	require.NotNil(t, l)
	require.Equal(t, 4, l.Burst())
}

func TestParseMissingFile(t *testing.T) {
	_, err := config.Parse(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestDecodeRejects(t *testing.T) {
	for name, data := range map[string]string{
		"unknown field": "backnd: canvas\n",
		"qr source":     "qr_source: ftp\n",
		"timeout":       "render_timeout: 0s\n",
		"rate limit":    "rate_limit: -1\n",
		"rate burst":    "rate_burst: 0\n",
		"log level":     "log:\n  level: loud\n",
		"log format":    "log:\n  format: xml\n",
		"address":       "address: \"\"\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := config.Decode(strings.NewReader(data))
			require.Error(t, err)
		})
	}
}

func TestLogger(t *testing.T) {
	c := config.Default()
	c.Log.Format = "json"
	c.Log.Level = "warn"

	var buf bytes.Buffer
	logger := c.Logger(&buf)

	logger.Info("hidden")
	logger.Warn("shown", "backend", "canvas")

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, `"msg":"shown"`)
	require.Contains(t, out, `"backend":"canvas"`)
}

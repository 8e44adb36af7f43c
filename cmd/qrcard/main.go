package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"qrcard/internal/config"
	"qrcard/internal/render"
	"qrcard/internal/render/backends"
	"qrcard/internal/render/qr"
	"qrcard/internal/server"
)

var (
	flagConfig  = flag.String("config", "", "path to the YAML config file")
	flagListen  = flag.String("listen", "", "address to listen on (overrides config)")
	flagBackend = flag.String("backend", "", "primary render backend: "+strings.Join(backends.Names(), ", "))
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	cfg := config.Default()

	if *flagConfig != "" {
		c, err := config.Parse(*flagConfig)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		cfg = c
	}

	if *flagListen != "" {
		cfg.Address = *flagListen
	}

	if *flagBackend != "" {
		cfg.Backend = *flagBackend
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := cfg.Logger(os.Stderr)
	slog.SetDefault(logger)

	client := &http.Client{
		Timeout: cfg.RenderTimeout,
	}

	remote := qr.NewRemote(client, "")

	var source qr.Source = qr.NewLocal()

	if strings.EqualFold(cfg.QRSource, "remote") {
		source = remote
	}

	opts := backends.Options{
		Client: client,
		Logger: logger,

		Source: source,
		Links:  remote,

		ChromeExecPath:  cfg.Chrome.ExecPath,
		ChromeNoSandbox: cfg.Chrome.NoSandbox,
		RenderTimeout:   cfg.RenderTimeout,

		ConverterURL: cfg.SVG.ConverterURL,
	}

	limiter := cfg.Limiter()

	primary, err := backends.New(cfg.Backend, opts)
	if err != nil {
		return err
	}

	var fallback render.Backend

	if cfg.Fallback != "" {
		b, err := backends.New(cfg.Fallback, opts)
		if err != nil {
			return err
		}

		fallback = render.Limit(limiter, b)
	}

	s, err := server.New(server.Options{
		Primary:  render.Limit(limiter, primary),
		Fallback: fallback,

		RedirectFallback: cfg.RedirectFallback,

		Logger: logger,
	})

	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	srv := &http.Server{
		Addr:    cfg.Address,
		Handler: s,

		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)

	go func() {
		logger.Info("listening", "address", cfg.Address, "backend", primary.Name(), "fallback", cfg.Fallback, "qr_source", cfg.QRSource)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil

	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.RenderTimeout+5*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"society/internal/backend"
	"society/internal/cli"
	apphttp "society/internal/http"
	"society/internal/log"
	"society/internal/report"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)

	cfg := cli.LoadAndValidateConfig(logger)
	res := cli.InitBackend(context.Background(), logger, cfg)
	svc := backend.NewServices(res, backend.ServiceOptionsFromConfig(cfg))

	html, err := report.NewHTMLRenderer()
	if err != nil {
		logger.Error("Failed parsing report templates", log.FieldError, err)
		os.Exit(1)
	}

	// Without a PDF renderer PDF requests answer 503.
	var (
		chrome *report.ChromePrinter
		pdf    *report.PDFRenderer
	)
	if cfg.PDFRenderer == "chromedp" {
		chrome = report.NewChromePrinter(report.ChromeConfig{
			RemoteURL: cfg.ChromeRemoteURL,
			Timeout:   cfg.RequestTimeout,
			NoSandbox: cfg.ChromeNoSandbox,
		})
		pdf = report.NewPDFRenderer(html, chrome)
		logger.Info("PDF rendering enabled", "remote", cfg.ChromeRemoteURL != "")
	} else {
		logger.Info("PDF rendering disabled")
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Services:       svc,
		Store:          res.Store,
		HTML:           html,
		PDF:            pdf,
		Logger:         logger,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = cfg.RequestTimeout + 30*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if chrome != nil {
			if err := chrome.Close(); err != nil {
				logger.Warn("Chrome shutdown error", log.FieldError, err)
			}
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting society server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"society", cfg.SocietyName,
		"events", res.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

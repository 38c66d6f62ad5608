package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joelkehle/notice-analyzer/internal/httpapi"
	"github.com/joelkehle/notice-analyzer/internal/pdftext"
	"github.com/joelkehle/notice-analyzer/internal/report"
	"github.com/joelkehle/notice-analyzer/internal/telemetry"
)

func newServeCmd(load func() (*app, error)) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := load()
			if err != nil {
				return err
			}
			defer a.closeLog()
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			return serve(cmd.Context(), a)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func serve(parent context.Context, a *app) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:  a.cfg.Telemetry.ServiceName,
		Version:      version,
		OTLPEndpoint: a.cfg.Telemetry.OTLPEndpoint,
		Insecure:     a.cfg.Telemetry.Insecure,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := shutdownTracing(sctx); err != nil {
			a.log.WithError(err).Warn("tracer shutdown")
		}
	}()

	handler := httpapi.NewServer(
		a.analyzer,
		pdftext.Extractor{MaxBytes: a.cfg.Server.MaxUploadBytes},
		report.NewChromiumPDFRenderer(a.cfg.Report.ChromePath),
		httpapi.Config{AllowedOrigins: a.cfg.CORS.AllowedOrigins, MaxUploadBytes: a.cfg.Server.MaxUploadBytes},
		a.log,
	)
	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		sctx, scancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer scancel()
		_ = srv.Shutdown(sctx)
	}()

	a.log.WithField("addr", srv.Addr).Info("notice analyzer listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/handscribe/internal/async"
	"github.com/joseph-ayodele/handscribe/internal/common"
	"github.com/joseph-ayodele/handscribe/internal/export"
	"github.com/joseph-ayodele/handscribe/internal/llm"
	"github.com/joseph-ayodele/handscribe/internal/llm/gemini"
	"github.com/joseph-ayodele/handscribe/internal/server"
	"github.com/joseph-ayodele/handscribe/internal/session"
	"github.com/joseph-ayodele/handscribe/internal/ui"
)

const (
	sweepInterval   = time.Minute
	shutdownTimeout = 15 * time.Second
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the extractor UI over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a.cfg, a.logger)
		},
	}
}

// newGeminiClient pins only a key set in the config file. Without one the
// client reads API_KEY and GEMINI_API_KEY on every extraction.
func newGeminiClient(cfg *common.Config, logger *slog.Logger) (*gemini.Client, error) {
	return gemini.New(gemini.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	}, logger)
}

// newExtractionQueue detaches the workers from ctx: a shutdown signal stops
// new work, while in-flight extractions keep running until queue.Shutdown
// gives up on them.
func newExtractionQueue(ctx context.Context, cfg *common.Config, logger *slog.Logger) *async.WorkerQueue {
	return async.NewWorkerQueue(context.WithoutCancel(ctx), logger, async.WithJobTimeout(cfg.LLM.Timeout))
}

func serve(ctx context.Context, cfg *common.Config, logger *slog.Logger) error {
	// A client that cannot be built is reported on every new session instead
	// of stopping the process.
	var extractor llm.Extractor
	client, initErr := newGeminiClient(cfg, logger)
	if initErr != nil {
		logger.Error("gemini.init.failed", "error", initErr)
	} else {
		extractor = client
	}

	exporter := export.NewService(ctx, export.NewDocxEncoder(), logger)
	previews := session.NewMemoryPreviews()
	queue := newExtractionQueue(ctx, cfg, logger)

	store := session.NewStore(session.Deps{
		Extractor: extractor,
		Exporter:  exporter,
		Previews:  previews,
		Queue:     queue,
		Logger:    logger,
		CopyReset: cfg.Session.CopyReset,
	}, cfg.Session.TTL)
	go store.Run(ctx, sweepInterval)

	renderer, err := ui.NewRenderer(ui.Options{
		Model:       cfg.LLM.Model,
		MaxUploadMB: cfg.Server.MaxUploadMB,
		CopyReset:   cfg.Session.CopyReset,
	})
	if err != nil {
		return fmt.Errorf("build renderer: %w", err)
	}

	handler := server.New(server.Options{
		Store:            store,
		Previews:         previews,
		Renderer:         renderer,
		Logger:           logger,
		UploadLimitBytes: cfg.UploadLimitBytes(),
		InitErr:          initErr,
	})
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           handler.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	grpcServer, hs := server.NewGRPC(initErr == nil)
	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.Server.GRPCAddr, err)
		}
		go func() {
			logger.Info("grpc.serving", "addr", cfg.Server.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc serve: %w", err)
			}
		}()
	}

	go func() {
		logger.Info("http.serving", "addr", cfg.Server.HTTPAddr, "model", cfg.LLM.Model, "docx", exporter.DocxAvailable())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case serveErr = <-errCh:
		logger.Error("server.failed", "error", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	hs.Shutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http.shutdown", "error", err)
	}
	grpcServer.GracefulStop()
	queue.Shutdown(shutdownCtx)
	store.Close()
	logger.Info("stopped")
	return serveErr
}

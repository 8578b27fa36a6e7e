package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/solatis/advisor/internal/core/api"
	"github.com/solatis/advisor/internal/core/metrics"
	"github.com/solatis/advisor/internal/core/server"
	"github.com/solatis/advisor/internal/rules"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC evaluator and HTTP admin servers",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "listen host")
	serveCmd.Flags().Int("port", 50051, "gRPC server port")
	serveCmd.Flags().Int("http-port", 8080, "HTTP admin server port")
	serveCmd.Flags().Int("workers", 1, "rules matched concurrently per evaluation")
	serveCmd.Flags().Int("max-rules", 10000, "maximum rules per request")
	serveCmd.Flags().Duration("timeout", 30*time.Second, "per-request evaluation deadline")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	evalMetrics := metrics.NewEvaluationMetrics(registry)

	engine := rules.NewEngine(
		rules.WithWorkers(cfg.Workers),
		rules.WithLogger(logger),
		rules.WithObserver(evalMetrics),
	)

	service, err := api.NewEvaluatorService(engine, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	grpcServer, err := server.NewGRPCServer(cfg, service, logger)
	if err != nil {
		return fmt.Errorf("failed to create grpc server: %w", err)
	}
	httpServer, err := server.NewHTTPServer(cfg, service, registry, logger)
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	logger.Info().
		Str("version", Version).
		Str("grpc_addr", cfg.GRPCAddr()).
		Str("http_addr", cfg.HTTPAddr()).
		Int("workers", cfg.Workers).
		Msg("starting advisor")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return grpcServer.Start(gctx) })
	g.Go(func() error { return httpServer.Start(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		httpErr := httpServer.Shutdown(shutdownCtx)
		grpcErr := grpcServer.Shutdown(shutdownCtx)
		if httpErr != nil {
			return httpErr
		}
		return grpcErr
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped")
		return err
	}
	return nil
}

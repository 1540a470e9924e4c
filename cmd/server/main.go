package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hijjiri/todo-rest/internal/config"
	domain_todo "github.com/hijjiri/todo-rest/internal/domain/todo"
	filerepo "github.com/hijjiri/todo-rest/internal/infrastructure/file"
	memoryrepo "github.com/hijjiri/todo-rest/internal/infrastructure/memory"
	mysqlrepo "github.com/hijjiri/todo-rest/internal/infrastructure/mysql"
	grpcadapter "github.com/hijjiri/todo-rest/internal/interface/grpc"
	httpadapter "github.com/hijjiri/todo-rest/internal/interface/http"
	"github.com/hijjiri/todo-rest/internal/observability"
	todo_usecase "github.com/hijjiri/todo-rest/internal/usecase/todo"
)

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// openStore builds the repository selected by STORE_DRIVER. cleanup releases
// whatever the store holds open.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (domain_todo.Repository, domain_todo.Transactor, func(), error) {
	switch cfg.Store.Driver {
	case config.StoreMySQL:
		db, err := mysqlrepo.Open(ctx, cfg.DB.MySQL(), logger)
		if err != nil {
			return nil, nil, nil, err
		}
		repo := mysqlrepo.NewTodoRepository(db, logger)
		return repo, mysqlrepo.NewTxManager(db, logger), func() { db.Close() }, nil

	case config.StoreMemory:
		logger.Warn("using in-memory store; todos are lost on restart")
		return memoryrepo.NewTodoRepository(), nil, func() {}, nil

	default:
		repo, err := filerepo.Open(cfg.Store.DataFile, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		return repo, nil, func() {}, nil
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// ---- Logger ----
	logger, err := newLogger(cfg.LogDevelopment)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("loaded config",
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("metrics_addr", cfg.MetricsAddr),
		zap.String("grpc_health_addr", cfg.GRPCHealthAddr),
		zap.String("store_driver", cfg.Store.Driver),
		zap.String("data_file", cfg.Store.DataFile),
		zap.Duration("request_timeout", cfg.RequestTimeout),
		zap.String("trace_exporter", cfg.TraceExporter),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Tracing ----
	shutdownTracing, err := observability.SetupTracing(cfg.ServiceName, cfg.TraceExporter, os.Stdout, logger)
	if err != nil {
		logger.Fatal("failed to set up tracing", zap.Error(err))
	}

	// ---- gRPC health ----
	var healthSrv *grpcadapter.HealthServer
	if cfg.GRPCHealthAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCHealthAddr)
		if err != nil {
			logger.Fatal("failed to listen", zap.String("addr", cfg.GRPCHealthAddr), zap.Error(err))
		}
		healthSrv = grpcadapter.NewHealthServer(logger, cfg.RequestTimeout)
		go func() {
			if err := healthSrv.Serve(lis); err != nil {
				logger.Error("gRPC health server error", zap.Error(err))
			}
		}()
	}

	// ---- Store ----
	repo, tx, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		var loadErr *filerepo.LoadError
		if errors.As(err, &loadErr) {
			logger.Fatal("todo data file is corrupt; refusing to start",
				zap.String("path", loadErr.Path),
				zap.Error(loadErr.Err),
			)
		}
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer closeStore()

	// ---- metrics ----
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := httpadapter.NewMetrics(reg)

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		go func() {
			logger.Info("metrics server started", zap.String("addr", cfg.MetricsAddr))
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", zap.Error(err))
			}
		}()
	}

	// ---- Todo API ----
	if !cfg.LogDevelopment {
		gin.SetMode(gin.ReleaseMode)
	}
	uc := todo_usecase.New(repo, tx, logger)
	router := httpadapter.NewRouter(httpadapter.RouterConfig{
		Usecase:        uc,
		Logger:         logger,
		Metrics:        metrics,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server is starting", zap.String("addr", cfg.HTTPAddr))
		errCh <- srv.ListenAndServe()
	}()

	if healthSrv != nil {
		healthSrv.SetServing(true)
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server exited with error", zap.Error(err))
		}
	}

	// ---- graceful shutdown ----
	if healthSrv != nil {
		healthSrv.SetServing(false)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down HTTP server", zap.Error(err))
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shut down metrics server", zap.Error(err))
		}
	}
	if healthSrv != nil {
		healthSrv.GracefulStop()
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("failed to flush traces", zap.Error(err))
	}

	logger.Info("server stopped")
}

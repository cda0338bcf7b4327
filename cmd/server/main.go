package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	amqpadapter "github.com/simaogato/fundledger/internal/adapter/amqp"
	grpcadapter "github.com/simaogato/fundledger/internal/adapter/grpc"
	"github.com/simaogato/fundledger/internal/adapter/httpapi"
	"github.com/simaogato/fundledger/internal/adapter/repository/sqlstore"
	"github.com/simaogato/fundledger/internal/config"
	"github.com/simaogato/fundledger/internal/domain"
	"github.com/simaogato/fundledger/internal/logger"
	"github.com/simaogato/fundledger/internal/usecase/balance"
	"github.com/simaogato/fundledger/internal/usecase/commission"
	"github.com/simaogato/fundledger/internal/usecase/export"
	"github.com/simaogato/fundledger/internal/usecase/fundstatus"
	"github.com/simaogato/fundledger/internal/usecase/ledger"
	"github.com/simaogato/fundledger/internal/usecase/seeder"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 1. Configuration and logging
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "json")
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Server stopped with error")
	}
	log.Info().Msg("Server stopped")
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Setup Database
	dialect := sqlstore.Dialect(cfg.DBDriver)
	if err := sqlstore.RunMigrations(dialect, cfg.DBDSN); err != nil {
		return err
	}

	db, err := sqlstore.NewDB(dialect, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info().Str("driver", cfg.DBDriver).Msg("Database ready")

	// 3. Initialize Repositories
	recordRepo := sqlstore.NewRecordRepository(db)
	ruleRepo := sqlstore.NewCommissionRuleRepository(db)
	tipRepo := sqlstore.NewCommissionTipRepository(db)
	directory := sqlstore.NewEntityDirectory(db)

	// Event publishing is optional
	var events domain.EventPublisher = domain.DiscardEvents{}
	if cfg.AMQPURL != "" {
		publisher, err := amqpadapter.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, log)
		if err != nil {
			return err
		}
		defer publisher.Close()
		events = publisher
		log.Info().Str("exchange", cfg.AMQPExchange).Msg("Publishing ledger events")
	}

	// 4. Initialize Services (Use Cases)
	ledgerService := ledger.NewService(recordRepo, directory, db, events, log, cfg.ReportLimit)
	statusService := fundstatus.NewService(recordRepo, db, events, log)
	balanceService := balance.NewService(recordRepo)
	exportService := export.NewService(recordRepo, directory)
	commissionService, err := commission.NewService(ruleRepo, tipRepo, log, cfg.RuleCacheSize)
	if err != nil {
		return err
	}

	if err := seeder.NewSystemSeeder(tipRepo).Seed(ctx); err != nil {
		return err
	}
	log.Info().Msg("Default commission tips seeded")

	// 5. gRPC server
	interceptors := []grpclib.UnaryServerInterceptor{grpcadapter.LoggingInterceptor(log)}
	if cfg.APIToken != "" {
		interceptors = append(interceptors, grpcadapter.AuthInterceptor(cfg.APIToken))
	} else {
		log.Warn().Msg("API_TOKEN is empty, requests are not authenticated")
	}
	grpcServer := grpclib.NewServer(grpclib.ChainUnaryInterceptor(interceptors...))

	grpcadapter.RegisterLedgerServiceServer(grpcServer, grpcadapter.NewServer(
		ledgerService, statusService, balanceService, commissionService, log,
	))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(grpcadapter.ServiceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	// 6. HTTP server
	httpServer := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.SetupRouter(
			db,
			httpapi.NewReportHandler(exportService, balanceService, log),
			cfg.APIToken,
			log,
		),
		ReadHeaderTimeout: 5 * time.Second,
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", cfg.GRPCAddr).Msg("gRPC server listening")
		return grpcServer.Serve(lis)
	})

	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down gracefully...")

		healthServer.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := httpServer.Shutdown(shutdownCtx)
		grpcServer.GracefulStop()
		return err
	})

	return g.Wait()
}

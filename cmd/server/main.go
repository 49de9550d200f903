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

	"github.com/IBM/sarama"
	"github.com/vogiaan1904/ticketbottle-inventory/config"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/clock"
	grpcSvc "github.com/vogiaan1904/ticketbottle-inventory/internal/delivery/grpc"
	httpSvc "github.com/vogiaan1904/ticketbottle-inventory/internal/delivery/http"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/delivery/kafka/consumer"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/delivery/kafka/producer"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/infra/postgres"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/infra/redis"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/payment"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/realtime"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/repository"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/repository/memory"
	pgRepo "github.com/vogiaan1904/ticketbottle-inventory/internal/repository/postgres"
	redisRepo "github.com/vogiaan1904/ticketbottle-inventory/internal/repository/redis"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/service"
	pkgGrpc "github.com/vogiaan1904/ticketbottle-inventory/pkg/grpc"
	pkgKafka "github.com/vogiaan1904/ticketbottle-inventory/pkg/kafka"
	pkgLog "github.com/vogiaan1904/ticketbottle-inventory/pkg/logger"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

type repositories struct {
	events       repository.EventRepository
	reservations repository.ReservationRepository
	tickets      repository.TicketRepository
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	l := pkgLog.InitializeZapLogger(pkgLog.ZapConfig{
		Level:    cfg.Log.Level,
		Mode:     cfg.Log.Mode,
		Encoding: cfg.Log.Encoding,
		Service:  "ticketbottle-inventory",
	})

	clk := clock.NewSystem()
	bc := realtime.NewBroadcaster(l)
	g, gCtx := errgroup.WithContext(ctx)

	var (
		repos repositories
		pub   realtime.Publisher = bc
	)

	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		l.Warn(ctx, "Using in-memory store; state is lost on restart and not shared across instances")
		store := memory.NewStore()
		repos = repositories{
			events:       store.Events(),
			reservations: store.Reservations(),
			tickets:      store.Tickets(),
		}
	default:
		redisCli, err := redis.Connect(ctx, cfg.Redis, l)
		if err != nil {
			l.Fatalf(ctx, "Failed to connect to Redis: %v", err)
		}
		defer redis.Disconnect(ctx, redisCli, l)

		pool, err := postgres.Connect(ctx, cfg.Postgres, l)
		if err != nil {
			l.Fatalf(ctx, "Failed to connect to Postgres: %v", err)
		}
		defer postgres.Disconnect(ctx, pool, l)

		repos = repositories{
			events:       redisRepo.NewRedisEventRepository(redisCli, l),
			reservations: redisRepo.NewRedisReservationRepository(redisCli, l),
			tickets:      pgRepo.NewTicketRepository(pool, l),
		}

		relay := realtime.NewRedisRelay(redisCli, cfg.Realtime.Channel, bc, l)
		sub, err := relay.Subscribe(ctx)
		if err != nil {
			l.Fatalf(ctx, "Failed to subscribe to realtime channel: %v", err)
		}
		pub = relay
		g.Go(func() error {
			return relay.Forward(gCtx, sub)
		})
	}

	// Kafka is optional; services skip publishing when prod is nil.
	var prod producer.Producer
	var kafkaConsGr sarama.ConsumerGroup
	if cfg.Kafka.Enabled {
		kafkaSyncProd, err := pkgKafka.NewProducer(ctx, pkgKafka.ProducerConfig{
			Brokers:      cfg.Kafka.Brokers,
			RetryMax:     cfg.Kafka.ProducerRetryMax,
			RequiredAcks: cfg.Kafka.ProducerRequiredAcks,
			Idempotent:   cfg.Kafka.ProducerIdempotent,
		}, l)
		if err != nil {
			l.Fatalf(ctx, "Failed to initialize Kafka producer: %v", err)
		}
		prod = producer.NewProducer(kafkaSyncProd, l)
		defer prod.Close()

		kafkaConsGr, err = pkgKafka.NewConsumer(ctx, pkgKafka.ConsumerConfig{
			Brokers: cfg.Kafka.Brokers,
			GroupID: cfg.Kafka.ConsumerGroupID,
		}, l)
		if err != nil {
			l.Fatalf(ctx, "Failed to initialize Kafka consumer: %v", err)
		}
	}

	// Initialize services
	handles := payment.NewRegistry(clk)
	defer handles.Close()

	catalogSvc := service.NewCatalogService(repos.events, clk, l)
	invSvc := service.NewInventoryService(repos.reservations, pub, handles, prod, clk,
		service.InventoryConfig{HoldTTL: cfg.Inventory.HoldTTL}, l)
	ticketSvc := service.NewTicketService(repos.tickets, repos.events, repos.reservations, pub, prod, clk,
		service.TicketConfig{QRSecret: cfg.Ticket.QRSecret, QRSize: cfg.Ticket.QRSize}, l)
	paySvc := service.NewPaymentService(invSvc, ticketSvc, repos.events, repos.reservations, handles, prod, clk,
		service.PaymentConfig{Currency: cfg.Payment.Currency, MaxAwait: cfg.Payment.MaxAwait}, l)
	authSvc := service.NewAuthService(service.AuthConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer}, clk, l)

	if err := seedEvents(ctx, cfg.Seed.EventsFile, catalogSvc, l); err != nil {
		l.Fatalf(ctx, "Failed to seed events: %v", err)
	}

	sw := service.NewSweeper(invSvc, ticketSvc, repos.reservations, clk, service.SweeperConfig{
		Interval:         cfg.Inventory.SweepInterval,
		BatchSize:        cfg.Inventory.SweepBatchSize,
		ReissueBatchSize: cfg.Inventory.ReissueBatchSize,
		RetryAttempts:    cfg.Inventory.RetryAttempts,
		RetryDelay:       cfg.Inventory.RetryDelay,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	}, l)
	if err := sw.Start(gCtx); err != nil {
		l.Fatalf(ctx, "Failed to start sweeper: %v", err)
	}

	if kafkaConsGr != nil {
		cons := consumer.NewConsumer(kafkaConsGr, paySvc, l)
		if err := cons.Start(gCtx); err != nil {
			l.Fatalf(ctx, "Failed to start Kafka consumer: %v", err)
		}
		defer cons.Close()
	}

	// gRPC server
	lnr, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRpcPort))
	if err != nil {
		l.Fatalf(ctx, "gRPC server failed to listen: %v", err)
	}

	gRpcSrv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(grpcSvc.AuthUnaryInterceptor(authSvc)),
		grpc.ChainStreamInterceptor(grpcSvc.AuthStreamInterceptor(authSvc)),
	)
	pkgGrpc.RegisterInventoryServiceServer(gRpcSrv, grpcSvc.NewGrpcService(catalogSvc, invSvc, bc, l))

	g.Go(func() error {
		l.Infof(ctx, "gRPC server is listening on port: %d", cfg.Server.GRpcPort)
		if err := gRpcSrv.Serve(lnr); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", err)
		}
		return nil
	})

	// HTTP server
	h := httpSvc.NewHandler(httpSvc.Services{
		Catalog:   catalogSvc,
		Inventory: invSvc,
		Payment:   paySvc,
		Tickets:   ticketSvc,
		Auth:      authSvc,
	}, bc, httpSvc.Config{
		WebhookSecret:    cfg.Payment.WebhookSecret,
		AllowedOrigins:   cfg.Realtime.AllowedOrigins,
		WriteTimeout:     cfg.Realtime.WriteTimeout,
		PingInterval:     cfg.Realtime.PingInterval,
		MaxMessageSize:   cfg.Realtime.MaxMessageSize,
		MaxSubscriptions: cfg.Realtime.MaxSubscriptions,
	}, l)

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      h.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return gCtx },
	}

	g.Go(func() error {
		l.Infof(ctx, "HTTP server is listening on port: %d", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve HTTP: %w", err)
		}
		return nil
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case <-gCtx.Done():
		l.Errorf(ctx, "Server component failed: %v", context.Cause(gCtx))
	}

	l.Info(ctx, "Server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Ends every websocket and availability stream so both servers can drain.
	bc.Close()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		l.Warnf(ctx, "HTTP shutdown: %v", err)
	}
	if err := sw.Stop(); err != nil {
		l.Warnf(ctx, "Sweeper shutdown: %v", err)
	}
	cancel()
	if !grpcSvc.GracefulStop(shutdownCtx, gRpcSrv) {
		l.Warn(ctx, "gRPC graceful stop timed out, remaining calls were closed")
	}

	if err := g.Wait(); err != nil {
		l.Errorf(ctx, "Server exited with error: %v", err)
	}

	l.Info(ctx, "Server exited")
}

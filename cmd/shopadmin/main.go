package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/shopadmin/internal/auth"
	"github.com/dshills/shopadmin/internal/config"
	"github.com/dshills/shopadmin/internal/httpapi"
	"github.com/dshills/shopadmin/internal/idempotency"
	"github.com/dshills/shopadmin/internal/logging"
	"github.com/dshills/shopadmin/internal/mcp"
	"github.com/dshills/shopadmin/internal/metrics"
	"github.com/dshills/shopadmin/internal/orders"
	"github.com/dshills/shopadmin/internal/outbox"
	"github.com/dshills/shopadmin/internal/storage"
	"github.com/dshills/shopadmin/pkg/types"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var (
		showVersion = flag.Bool("version", false, "print version and exit")
		serveMCP    = flag.Bool("mcp", false, "serve MCP tools on stdio instead of HTTP")
		envFile     = flag.String("env", ".env", "optional dotenv file")
		issueToken  = flag.Bool("issue-token", false, "print a bearer token for the user given by -user-* and exit")
		userID      = flag.String("user-id", "admin", "token subject id")
		userEmail   = flag.String("user-email", "admin@shopadmin.local", "token subject email")
		userRole    = flag.String("user-role", "ADMIN", "token subject role")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("shopadmin\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", storage.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
		os.Exit(0)
	}

	// stdout is reserved for the MCP protocol
	log.SetOutput(os.Stderr)

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *issueToken {
		token, err := issue(cfg, auth.User{ID: *userID, Email: *userEmail, Role: *userRole})
		if err != nil {
			log.Fatalf("Failed to issue token: %v", err)
		}
		fmt.Println(token)
		return
	}

	if err := run(cfg, *serveMCP); err != nil {
		log.Fatalf("shopadmin: %v", err)
	}
	log.Println("Server stopped")
}

func issue(cfg *config.Config, u auth.User) (string, error) {
	if err := cfg.RequireJWTSecret(); err != nil {
		return "", err
	}
	authn, err := auth.NewAuthenticator(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return "", err
	}
	return authn.IssueToken(u)
}

func run(cfg *config.Config, serveMCP bool) error {
	logger := logging.New("shopadmin", os.Stderr)
	logger.Info("startup", fmt.Sprintf("shopadmin %s starting (build mode %s, driver %s)", version, storage.BuildMode, cfg.DBDriver))

	store, err := storage.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	reg := metrics.New()
	manager := orders.NewManager(store,
		orders.WithTopic(cfg.KafkaTopic),
		orders.WithLogger(logger),
		orders.WithMetrics(reg.Orders),
	)

	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = publisher.Close() }()

	relay := outbox.NewRelay(store, publisher, outbox.Config{
		Interval:  cfg.OutboxInterval,
		BatchSize: cfg.OutboxBatch,
		Logger:    logger,
		Metrics:   reg.Outbox,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return relay.Run(ctx) })

	if serveMCP {
		server, err := mcp.NewServer(manager, types.Actor{ID: cfg.MCPActorID, Email: cfg.MCPActorEmail}, logger)
		if err != nil {
			return fmt.Errorf("failed to create MCP server: %w", err)
		}
		g.Go(func() error {
			// Serve also returns when stdin closes; stop the relay with it
			defer stop()
			return server.Serve(ctx)
		})
		return g.Wait()
	}

	gin.SetMode(gin.ReleaseMode)
	httpServer, err := newHTTPServer(cfg, store, manager, reg, logger)
	if err != nil {
		return err
	}
	g.Go(func() error {
		logger.Info("http", "listening on "+cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newPublisher(cfg *config.Config, logger *logging.Logger) (outbox.Publisher, error) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("outbox", "no Kafka brokers configured, logging events instead")
		return outbox.NewLogPublisher(logger), nil
	}
	p, err := outbox.NewKafkaPublisher(cfg.KafkaBrokers)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
	}
	return p, nil
}

func newHTTPServer(cfg *config.Config, store storage.Storage, manager *orders.Manager, reg *metrics.Registry, logger *logging.Logger) (*http.Server, error) {
	if err := cfg.RequireJWTSecret(); err != nil {
		return nil, err
	}
	authn, err := auth.NewAuthenticator(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return nil, err
	}
	idem, err := idempotency.New(cfg.IdemCacheSize)
	if err != nil {
		return nil, err
	}

	api, err := httpapi.New(httpapi.Options{
		Orders:         manager,
		Auth:           authn,
		Idempotency:    idem,
		Storage:        store,
		Metrics:        reg,
		Logger:         logger,
		RequestTimeout: cfg.RequestTimeout,
	})
	if err != nil {
		return nil, err
	}
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}, nil
}

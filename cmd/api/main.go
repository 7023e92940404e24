package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"itsaportal/internal/config"
	"itsaportal/internal/events"
	"itsaportal/internal/gateway"
	"itsaportal/internal/gateway/gotrue"
	"itsaportal/internal/gateway/pgstore"
	"itsaportal/internal/gateway/s3store"
	"itsaportal/internal/httpserver"
	"itsaportal/internal/httpserver/handlers"
	"itsaportal/internal/identity"
	"itsaportal/internal/lifecycle"
	"itsaportal/internal/logger"
	"itsaportal/internal/telemetry"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Sugar().Fatalw("config load failed", "error", err)
	}
	lg := logger.New(cfg.LogLevel)
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "itsa-portal", cfg.OTelEndpoint)
	if err != nil {
		lg.Fatalw("telemetry setup failed", "error", err)
	}

	gw := openGateway(ctx, cfg, lg)

	var pub events.Publisher = events.NewLogPublisher(lg)
	if cfg.AMQPURL != "" {
		amqpPub, err := events.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			lg.Fatalw("amqp connect failed", "error", err)
		}
		defer amqpPub.Close()
		pub = amqpPub
	}

	money, err := lifecycle.NewFormatter(cfg.Currency, cfg.Locale)
	if err != nil {
		lg.Fatalw("currency formatter failed", "error", err)
	}
	svc := lifecycle.NewService(gw, lg, lifecycle.Options{
		Bucket:     cfg.StorageBucket,
		PresignTTL: cfg.PresignTTL,
		Formatter:  money,
		Publisher:  pub,
	})

	router := httpserver.NewRouter(httpserver.Deps{
		Gateway:   gw,
		Service:   svc,
		Publisher: pub,
		Identity:  identity.Options{CallbackURL: cfg.CallbackURL()},
		Cookies: handlers.Cookies{
			Secure:     strings.HasPrefix(cfg.PublicBaseURL, "https://"),
			RefreshTTL: cfg.RefreshTTL,
		},
	}, lg)

	srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		lg.Infow("listening", "port", cfg.HTTPPort, "backend_configured", gw.Configured())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatalw("http server failed", "error", err)
		}
	}()

	<-ctx.Done()
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		lg.Warnw("http shutdown", "error", err)
	}
	if err := shutdownTracing(sctx); err != nil {
		lg.Warnw("tracer shutdown", "error", err)
	}
}

// openGateway builds the hosted backend from config, or the offline gateway
// when credentials are missing.
func openGateway(ctx context.Context, cfg config.Config, lg *zap.SugaredLogger) *gateway.Gateway {
	if !cfg.GatewayConfigured() {
		lg.Warnw("gateway credentials missing, starting in unconfigured mode")
		return gateway.Unconfigured()
	}
	db, err := pgstore.Open(cfg.GatewayURL)
	if err != nil {
		lg.Fatalw("db connect failed", "error", err)
	}
	if err := pgstore.Migrate(db); err != nil {
		lg.Fatalw("automigrate failed", "error", err)
	}
	authSrv := gotrue.NewServer(db, gotrue.Config{
		Key:        []byte(cfg.GatewayKey),
		AccessTTL:  cfg.SessionTTL,
		RefreshTTL: cfg.RefreshTTL,
		CodeTTL:    cfg.VerificationTTL,
	}, lg)
	blobs, err := s3store.Load(ctx, cfg.AWSRegion, cfg.AWSEndpoint)
	if err != nil {
		lg.Fatalw("storage client failed", "error", err)
	}
	return gateway.New(authSrv.NewClient, pgstore.New(db), blobs)
}

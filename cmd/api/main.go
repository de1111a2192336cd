package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/notify-engine/internal/config"
	"github.com/jwalitptl/notify-engine/internal/handler"
	automationHandler "github.com/jwalitptl/notify-engine/internal/handler/automation"
	campaignHandler "github.com/jwalitptl/notify-engine/internal/handler/campaign"
	dispatchlogHandler "github.com/jwalitptl/notify-engine/internal/handler/dispatchlog"
	templateHandler "github.com/jwalitptl/notify-engine/internal/handler/template"
	"github.com/jwalitptl/notify-engine/internal/messenger"
	"github.com/jwalitptl/notify-engine/internal/middleware"
	"github.com/jwalitptl/notify-engine/internal/repository/postgres"
	"github.com/jwalitptl/notify-engine/internal/router"
	automationService "github.com/jwalitptl/notify-engine/internal/service/automation"
	campaignService "github.com/jwalitptl/notify-engine/internal/service/campaign"
	dispatchService "github.com/jwalitptl/notify-engine/internal/service/dispatch"
	scannerService "github.com/jwalitptl/notify-engine/internal/service/scanner"
	templateService "github.com/jwalitptl/notify-engine/internal/service/template"
	"github.com/jwalitptl/notify-engine/pkg/logger"
	"github.com/jwalitptl/notify-engine/pkg/messaging/redis"
	"github.com/jwalitptl/notify-engine/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	lg := logger.FromZerolog(log.With().Str("component", "api").Logger())

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(cfg.ToBrokerConfig(), &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create redis broker")
	}
	defer broker.Close()

	clientRepo := postgres.NewClientRepository(db)
	membershipRepo := postgres.NewMembershipRepository(db)
	templateRepo := postgres.NewTemplateRepository(db)
	ledgerRepo := postgres.NewTriggerLedgerRepository(db)
	dispatchLogRepo := postgres.NewDispatchLogRepository(db)
	campaignRepo := postgres.NewCampaignRepository(db)

	m := metrics.NewMetrics("notify", "engine")

	gateway := messenger.NewGatewayClient(cfg.Messenger)
	email := messenger.NewEmailSender(cfg.Messenger.SMTP)
	transport := messenger.NewRouter(gateway, email)

	templates := templateService.NewService(templateRepo, lg)
	scanner := scannerService.NewService(clientRepo, membershipRepo, lg, m)
	dispatcher := dispatchService.NewService(ledgerRepo, dispatchLogRepo, transport, cfg.Automation.DispatchDelay, lg, m)
	campaigns := campaignService.NewService(campaignRepo, clientRepo, templates, dispatcher, lg)
	automation := automationService.NewService(scanner, templates, dispatcher, campaigns, membershipRepo, transport, broker, lg, m)

	h := handler.NewHandler()
	r := router.NewRouter(
		automationHandler.NewHandler(automation, lg),
		campaignHandler.NewHandler(campaigns, lg),
		templateHandler.NewHandler(templates),
		dispatchlogHandler.NewHandler(dispatchLogRepo),
		h,
		router.Config{
			RateLimit:     rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:     cfg.RateLimit.Burst,
			CORSConfig:    middleware.DefaultCORSConfig(),
			MetricsPrefix: "notify_api",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     r.Engine(),
		ReadTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		// a synchronous automation run can take minutes on a large day
		WriteTimeout: 5 * time.Minute,
	}

	go func() {
		lg.Info("api server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	lg.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		lg.Error(err, "graceful shutdown failed")
	}
}

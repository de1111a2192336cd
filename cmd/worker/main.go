package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/notify-engine/internal/config"
	"github.com/jwalitptl/notify-engine/internal/messenger"
	"github.com/jwalitptl/notify-engine/internal/repository/postgres"
	automationService "github.com/jwalitptl/notify-engine/internal/service/automation"
	campaignService "github.com/jwalitptl/notify-engine/internal/service/campaign"
	dispatchService "github.com/jwalitptl/notify-engine/internal/service/dispatch"
	scannerService "github.com/jwalitptl/notify-engine/internal/service/scanner"
	templateService "github.com/jwalitptl/notify-engine/internal/service/template"
	"github.com/jwalitptl/notify-engine/internal/worker"
	"github.com/jwalitptl/notify-engine/pkg/logger"
	"github.com/jwalitptl/notify-engine/pkg/messaging/redis"
	"github.com/jwalitptl/notify-engine/pkg/metrics"
)

// workerEnv overrides the shared file config for worker deployments.
type workerEnv struct {
	ScanInterval    time.Duration `envconfig:"SCAN_INTERVAL"`
	DispatchDelay   time.Duration `envconfig:"DISPATCH_DELAY"`
	HealthPort      string        `envconfig:"HEALTH_PORT" default:":8081"`
	CleanupInterval time.Duration `envconfig:"CLEANUP_INTERVAL" default:"24h"`
}

func setupHealthCheck(addr string, lg *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			lg.Error(err, "health check server failed")
			os.Exit(1)
		}
	}()
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	var env workerEnv
	if err := envconfig.Process("notify_worker", &env); err != nil {
		log.Fatal().Err(err).Msg("failed to process worker env")
	}
	if env.ScanInterval > 0 {
		cfg.Automation.ScanInterval = env.ScanInterval
	}
	if env.DispatchDelay > 0 {
		cfg.Automation.DispatchDelay = env.DispatchDelay
	}

	lg := logger.FromZerolog(log.With().Str("component", "worker").Logger())

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

	m := metrics.NewMetrics("notify", "worker")

	gateway := messenger.NewGatewayClient(cfg.Messenger)
	email := messenger.NewEmailSender(cfg.Messenger.SMTP)
	transport := messenger.NewRouter(gateway, email)

	templates := templateService.NewService(templateRepo, lg)
	scanner := scannerService.NewService(clientRepo, membershipRepo, lg, m)
	dispatcher := dispatchService.NewService(ledgerRepo, dispatchLogRepo, transport, cfg.Automation.DispatchDelay, lg, m)
	campaigns := campaignService.NewService(campaignRepo, clientRepo, templates, dispatcher, lg)
	automation := automationService.NewService(scanner, templates, dispatcher, campaigns, membershipRepo, transport, broker, lg, m)

	cleanup := worker.NewDispatchLogCleanupWorker(dispatchLogRepo, cfg.Automation.LogRetentionDays, env.CleanupInterval, lg)

	setupHealthCheck(env.HealthPort, lg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		lg.Info("shutting down")
		cancel()
	}()

	go cleanup.Start(ctx)

	lg.Info("automation worker started", "scan_interval", cfg.Automation.ScanInterval.String())

	// run once at startup, then on every tick
	runCycle(ctx, automation, lg)

	ticker := time.NewTicker(cfg.Automation.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			lg.Info("automation worker stopped")
			return
		case <-ticker.C:
			runCycle(ctx, automation, lg)
		}
	}
}

func runCycle(ctx context.Context, automation *automationService.Service, lg *logger.Logger) {
	if err := automation.Run(ctx); err != nil {
		if errors.Is(err, automationService.ErrAlreadyRunning) {
			lg.Warn("skipping tick, previous run still in progress")
			return
		}
		lg.Error(err, "automation run failed")
	}
}

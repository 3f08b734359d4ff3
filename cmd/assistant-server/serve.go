package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fleet-assistant/internal/api"
	"fleet-assistant/internal/chat/ai"
	"fleet-assistant/internal/chat/analytics"
	"fleet-assistant/internal/chat/flow"
	"fleet-assistant/internal/chat/retention"
	"fleet-assistant/internal/chat/session"
	awsclient "fleet-assistant/internal/common/aws"
	"fleet-assistant/internal/common/camunda"
	"fleet-assistant/internal/common/config"
	"fleet-assistant/internal/common/logger"
	"fleet-assistant/internal/common/observability"
	"fleet-assistant/internal/consent"
	"fleet-assistant/internal/survey"

	crmcreate "fleet-assistant/internal/workers/leads/crm-create"
	indextranscript "fleet-assistant/internal/workers/leads/index-transcript"
	notifysales "fleet-assistant/internal/workers/leads/notify-sales"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat API, lead workers and the retention schedule",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting fleet assistant...", zap.String("environment", cfg.App.Environment))

	obs := observability.New(cfg.Observability.ServiceName, cfg.Observability.JaegerEndpoint, log)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	in, err := connect(ctx, cfg, zapLog, cfg.Camunda.Enabled && config.IsWorkerEnabled(cfg, indextranscript.TaskType))
	if err != nil {
		return err
	}
	defer in.close()

	backend := in.redis.Backend()
	conversations := buildStore(cfg, in, log)
	consentSvc := consent.NewService(backend, time.Duration(cfg.Chat.ConsentTTLDays)*24*time.Hour, log)

	var forwarder analytics.Forwarder = analytics.Discard{}
	if cfg.APIs.Analytics.Enabled && cfg.APIs.Analytics.CollectorURL != "" {
		forwarder = analytics.NewConsentGate(
			analytics.NewHTTPForwarder(cfg.APIs.Analytics.CollectorURL, config.GetDuration(cfg.APIs.Analytics.Timeout), log),
			consentSvc,
		)
	}

	var mailer *awsclient.SESClient
	if cfg.Integrations.AWS.SES.Enabled {
		mailer, err = awsclient.NewSESClient(ctx, cfg.Integrations.AWS.Region, cfg.Integrations.AWS.SES.FromEmail)
		if err != nil {
			return fmt.Errorf("ses client: %w", err)
		}
	}

	// --- Camunda: lead process starter and workers ---
	var zeebe *camunda.Client
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
				GatewayAddress:         cfg.Camunda.BrokerAddress,
				UsePlaintextConnection: true,
				RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
			})
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			return err
		}
		defer zeebe.Close()
		zapLog.Info("Zeebe client connected successfully")
	}

	deps := flow.Dependencies{
		Store:     conversations,
		AI:        newAIClient(cfg, obs, log),
		Analytics: forwarder,
		Turns:     obs,
		Logger:    log,
	}
	if zeebe != nil {
		deps.Leads = camunda.NewLeadProcessStarter(zeebe, cfg.Camunda.ProcessID, log)
	} else {
		zapLog.Warn("camunda disabled, qualified leads are only logged")
	}

	manager := flow.NewManager(flow.Config{
		TypingDelay:     config.GetDuration(cfg.Chat.TypingDelay),
		ChunkSpacing:    config.GetDuration(cfg.Chat.ChunkDelay),
		FollowUpDelay:   config.GetDuration(cfg.Chat.FollowUpDelay),
		CalendarURL:     cfg.Chat.CalendarURL,
		StrategyCallURL: cfg.Chat.StrategyCallURL,
	}, deps)
	defer manager.Close()

	workers := startLeadWorkers(ctx, cfg, zeebe, in, mailer, log, zapLog)
	defer func() {
		for _, w := range workers {
			w.Stop()
		}
	}()

	// --- Retention schedule ---
	job := retention.NewJob(conversations, manager,
		time.Duration(cfg.Chat.RetentionDays)*24*time.Hour,
		config.GetDuration(cfg.Chat.SessionTTL), log)
	purgeCron, err := retention.Schedule(cfg.Chat.PurgeSchedule, cfg.Chat.EvictSchedule, job)
	if err != nil {
		return err
	}
	defer purgeCron.Stop()

	// --- HTTP API ---
	apiDeps := api.Dependencies{
		Sessions:      session.NewProvider(backend, config.GetDuration(cfg.Chat.SessionTTL), log),
		Conversations: manager,
		Consent:       consentSvc,
		Ready: map[string]api.ReadinessCheck{
			"redis": in.redis.Ping,
		},
		Logger: log,
	}
	if in.pg != nil {
		var surveyMailer survey.Mailer
		if mailer != nil {
			surveyMailer = mailer
		}
		apiDeps.Surveys = survey.NewService(in.pg.DB, surveyMailer, forwarder, log)
		apiDeps.Ready["postgres"] = in.pg.Ping
	}
	if zeebe != nil {
		apiDeps.Ready["camunda"] = zeebe.HealthCheck
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      api.NewServer(apiDeps).Handler(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	serveErr := make(chan error, 1)
	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		zapLog.Info("Shutting down...")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}
	zapLog.Info("Fleet assistant stopped")
	return nil
}

func newAIClient(cfg *config.Config, recorder ai.CallRecorder, log logger.Logger) *ai.Client {
	return ai.NewClient(ai.Config{
		BaseURL:      cfg.APIs.ChatAI.BaseURL,
		Path:         cfg.APIs.ChatAI.Path,
		APIKey:       cfg.APIs.ChatAI.APIKey,
		Timeout:      config.GetDuration(cfg.APIs.ChatAI.Timeout),
		MaxRetries:   cfg.APIs.ChatAI.MaxRetries,
		HistoryTurns: cfg.Chat.HistoryTurns,
	}, recorder, log)
}

// startLeadWorkers registers the lead-qualification job workers that are
// enabled and have what they need.
func startLeadWorkers(ctx context.Context, cfg *config.Config, zeebe *camunda.Client, in *infra,
	mailer *awsclient.SESClient, log logger.Logger, zapLog *zap.Logger) []*camunda.JobWorker {
	if zeebe == nil {
		return nil
	}
	zc := zeebe.GetClient()
	var workers []*camunda.JobWorker

	// --- lead-notify-sales ---
	if taskType := notifysales.TaskType; config.IsWorkerEnabled(cfg, taskType) {
		wcfg := config.GetWorkerConfig(cfg, taskType)
		ncfg := notifysales.DefaultConfig()
		if wcfg.Timeout > 0 {
			ncfg.Timeout = config.GetDuration(wcfg.Timeout)
		}
		ncfg.SalesTo = splitList(cfg.Notifications.Email.SalesTo)
		ncfg.SMSEnabled = cfg.Notifications.SMS.Enabled
		ncfg.SalesPhone = cfg.Notifications.SMS.SalesPhone
		ncfg.SMSThreshold = cfg.Notifications.SMS.ScoreThreshold

		switch err := ncfg.Validate(); {
		case mailer == nil || !cfg.Notifications.Email.Enabled:
			zapLog.Warn("skipping worker, e-mail notifications are disabled", zap.String("taskType", taskType))
		case err != nil:
			zapLog.Warn("skipping worker, invalid configuration", zap.String("taskType", taskType), zap.Error(err))
		default:
			var sms notifysales.SMSSender
			if ncfg.SMSEnabled && cfg.Integrations.AWS.SNS.Enabled {
				snsClient, err := awsclient.NewSNSClient(ctx, cfg.Integrations.AWS.Region, cfg.Integrations.AWS.SNS.DefaultSMSSenderID)
				if err != nil {
					zapLog.Warn("sns client unavailable, sms disabled", zap.Error(err))
				} else {
					sms = snsClient
				}
			}
			handler := notifysales.NewHandler(ncfg, mailer, sms, log)
			workers = append(workers, camunda.StartWorker(zc, taskType, wcfg, handler.Handle, log))
		}
	}

	// --- lead-crm-create ---
	if taskType := crmcreate.TaskType; config.IsWorkerEnabled(cfg, taskType) {
		wcfg := config.GetWorkerConfig(cfg, taskType)
		ccfg := crmcreate.DefaultConfig()
		if wcfg.Timeout > 0 {
			ccfg.Timeout = config.GetDuration(wcfg.Timeout)
		}
		ccfg.ZohoAPIKey = cfg.Integrations.Zoho.APIKey
		ccfg.ZohoOAuthToken = cfg.Integrations.Zoho.AuthToken
		ccfg.ZohoBaseURL = cfg.Integrations.Zoho.BaseURL
		if !ccfg.Configured() {
			zapLog.Warn("zoho credentials missing, crm jobs will fail", zap.String("taskType", taskType))
		}
		handler := crmcreate.NewHandler(ccfg, crmcreate.NewZohoCRM(ccfg), log)
		workers = append(workers, camunda.StartWorker(zc, taskType, wcfg, handler.Handle, log))
	}

	// --- lead-index-transcript ---
	if taskType := indextranscript.TaskType; config.IsWorkerEnabled(cfg, taskType) {
		if in.es == nil {
			zapLog.Warn("skipping worker, elasticsearch is not configured", zap.String("taskType", taskType))
		} else {
			wcfg := config.GetWorkerConfig(cfg, taskType)
			icfg := indextranscript.LoadConfig()
			if wcfg.Timeout > 0 {
				icfg.Timeout = config.GetDuration(wcfg.Timeout)
			}
			icfg.Index = cfg.Database.Elasticsearch.TranscriptIndex
			if created, err := in.es.EnsureIndex(ctx, icfg.Index, indextranscript.IndexMapping); err != nil {
				zapLog.Warn("transcript index check failed", zap.String("index", icfg.Index), zap.Error(err))
			} else if created {
				zapLog.Info("transcript index created", zap.String("index", icfg.Index))
			}
			handler := indextranscript.NewHandler(icfg, in.es.Client, log)
			workers = append(workers, camunda.StartWorker(zc, taskType, wcfg, handler.Handle, log))
		}
	}

	zapLog.Info("Lead workers registered", zap.Int("count", len(workers)))
	return workers
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crm-relay/internal/attio"
	"crm-relay/internal/audit"
	"crm-relay/internal/auth"
	"crm-relay/internal/booking"
	"crm-relay/internal/config"
	"crm-relay/internal/correlate"
	"crm-relay/internal/httpapi"
	"crm-relay/internal/meeting"
	"crm-relay/internal/notify"
	"crm-relay/internal/outreach"
	"crm-relay/internal/poll"
	"crm-relay/internal/summarize"
	"crm-relay/pkg/logger"
	"crm-relay/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Ops)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	// Delivery audit log: Postgres when configured, in-memory otherwise.
	var auditRepo audit.Repository
	if cfg.AuditDBEnabled() {
		db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			log.Error("postgres init failed", "err", err)
			os.Exit(1)
		}
		defer db.Close()

		pg := audit.NewPostgresRepo(db)
		if err := pg.EnsureSchema(rootCtx); err != nil {
			log.Error("audit schema init failed", "err", err)
			os.Exit(1)
		}
		auditRepo = pg
		log.Info("audit log backed by postgres")
	} else {
		auditRepo = audit.NewMemoryRepo()
		log.Info("audit log in memory (DB_HOST not set)")
	}
	auditSvc := audit.NewService(auditRepo, log)

	bookings := correlate.NewBookingStore(cfg.Stores.BookingTTL)
	leads := correlate.NewLeadStore(cfg.Stores.LeadTTL)

	crm := attio.New(cfg.Attio.BaseURL, cfg.Attio.APIKey)
	summarizer := summarize.New(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	transcripts := meeting.NewClient(cfg.Fathom.BaseURL, cfg.Fathom.APIKey)

	var sink notify.Sink = notify.Noop{}
	if cfg.Slack.WebhookURL != "" {
		sink = notify.NewSlack(cfg.Slack.WebhookURL, log)
	}

	bookingSvc := booking.NewService(bookings, auditSvc, log)
	meetingSvc := meeting.NewService(
		bookings, transcripts, summarizer, crm, sink, auditSvc,
		poll.Config(cfg.Poll), cfg.Fathom.EndGrace, log,
	)
	outreachSvc := outreach.NewService(leads, crm, sink, auditSvc, log)

	// Per-account poll caps need both redis and a configured limit.
	if cfg.Redis.Addr != "" && cfg.Fathom.PollSlotLimit > 0 {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.Redis.Addr})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()

		meetingSvc.Slots = &meeting.RedisSlots{
			RDB:   rdb,
			Limit: cfg.Fathom.PollSlotLimit,
			TTL:   slotTTL(cfg.Poll),
		}
		log.Info("per-account poll caps enabled", "limit", cfg.Fathom.PollSlotLimit)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	h := httpapi.Handlers{
		Cfg:      cfg,
		Auth:     authManager,
		Booking:  bookingSvc,
		Meeting:  meetingSvc,
		Outreach: outreachSvc,
		Audit:    auditSvc,
		Bookings: bookings,
		Leads:    leads,
	}
	registerRoutes(r, h, authManager)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

// slotTTL sizes the redis slot expiry to the worst-case poll duration, so a
// crashed process cannot pin an account at its cap.
func slotTTL(p config.PollConfig) time.Duration {
	total := time.Duration(0)
	delay := p.BaseDelay
	for i := 1; i < p.MaxAttempts; i++ {
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
		total += delay
		delay *= 2
	}
	// Headroom for the fetches themselves.
	return total + 10*time.Minute
}

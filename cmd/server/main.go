// main wires the clinical workflow service: config from env, store
// selection (memory unless Redis/Postgres URLs are configured), the
// Identity Gate, the orchestrator, and an errgroup-managed HTTP server
// with graceful shutdown. Business logic lives in internal packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"careflow/internal/audit"
	auditmem "careflow/internal/audit/store/memory"
	auditpg "careflow/internal/audit/store/postgres"
	"careflow/internal/dispatch"
	emrstore "careflow/internal/dispatch/store/emr"
	orderstore "careflow/internal/dispatch/store/order"
	"careflow/internal/guideline"
	"careflow/internal/identity"
	"careflow/internal/identity/store/revocation"
	"careflow/internal/identity/store/template"
	"careflow/internal/platform/config"
	"careflow/internal/platform/httpserver"
	"careflow/internal/platform/logger"
	"careflow/internal/platform/metrics"
	platformredis "careflow/internal/platform/redis"
	"careflow/internal/transcript"
	httptransport "careflow/internal/transport/http"
	"careflow/internal/workflow"
	resultstore "careflow/internal/workflow/store/result"
	sessionstore "careflow/internal/workflow/store/session"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Token revocation list: shared via Redis when configured, otherwise
	// process-local.
	var trl identity.RevocationList
	redisClient, err := platformredis.New(cfg.Redis())
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		trl = revocation.NewRedisTRL(redisClient.Client)
		log.Info("using redis token revocation list")
	} else {
		trl = revocation.NewInMemoryTRL()
	}

	// Durable stores: Postgres backs the audit log, EMR records, and
	// pharmacy orders when configured, otherwise everything is in-memory.
	var (
		auditStore audit.Store
		emrStore   dispatch.EMRStore
		orderStore dispatch.OrderStore
	)
	if cfg.PostgresURL != "" {
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			log.Error("failed to open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("failed to ping postgres", "error", err)
			os.Exit(1)
		}
		auditStore = auditpg.New(db)
		emrStore = emrstore.NewPostgresStore(db)
		orderStore = orderstore.NewPostgresStore(db)
		log.Info("using postgres audit, EMR and pharmacy stores")
	} else {
		auditStore = auditmem.New()
		emrStore = emrstore.NewInMemoryStore()
		orderStore = orderstore.NewInMemoryStore()
	}

	tokens := identity.NewTokenService(cfg.JWTSigningKey, "careflow", cfg.TokenTTL, trl)
	gate := identity.NewService(template.New(), identity.GrayscaleDecoder{}, identity.MSEMatcher{}, tokens, cfg.MatchThreshold, log)

	emrWriter := dispatch.NewEMRWriter(emrStore, m, log)
	pharmacy := dispatch.NewPharmacyDispatcher(orderStore, m, log)

	embedder, err := guideline.NewHashingEmbedder(384)
	if err != nil {
		log.Error("failed to build embedder", "error", err)
		os.Exit(1)
	}
	guidelineIndex, err := guideline.DevSnapshot(ctx, embedder)
	if err != nil {
		log.Error("failed to build guideline snapshot", "error", err)
		os.Exit(1)
	}

	wf := workflow.NewService(workflow.Deps{
		Sessions:     sessionstore.New(),
		Results:      resultstore.New(),
		Audit:        audit.NewPublisher(auditStore),
		Gate:         gate,
		Transcripts:  transcript.NoteSource{},
		Embedder:     embedder,
		Retriever:    guidelineIndex,
		EMR:          emrWriter,
		Pharmacy:     pharmacy,
		Metrics:      m,
		Logger:       log,
		StageRetries: cfg.StageRetries,
		BaseBackoff:  cfg.BaseBackoff,
	})

	// Roll back any session whose state diverged from the audit log
	// before taking traffic.
	if fixed, err := wf.Reconcile(ctx); err != nil {
		log.Error("startup reconcile failed", "error", err)
		os.Exit(1)
	} else if fixed > 0 {
		log.Warn("reconciled diverged sessions", "count", fixed)
	}

	handler := httptransport.NewHandler(wf, gate, emrWriter, pharmacy, log)
	router := httptransport.NewRouter(handler, identity.NewMiddlewareAdapter(tokens), tokens, log)
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting careflow server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

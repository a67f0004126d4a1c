package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/harborpoint/leadsync/internal/config"
	"github.com/harborpoint/leadsync/internal/infra/cache"
	"github.com/harborpoint/leadsync/internal/infra/database"
	"github.com/harborpoint/leadsync/internal/infra/http/handlers"
	"github.com/harborpoint/leadsync/internal/infra/http/middleware"
	"github.com/harborpoint/leadsync/internal/infra/mail"
	"github.com/harborpoint/leadsync/internal/infra/queue"
	"github.com/harborpoint/leadsync/internal/infra/remotestore"
	"github.com/harborpoint/leadsync/internal/infra/worker"
	"github.com/harborpoint/leadsync/internal/usecase"
)

func main() {
	if err := config.Load(); err != nil {
		log.Fatal(err)
	}
	cfg := config.AppConfig

	// Remote store: the sole source of truth for lead existence.
	remote := remotestore.NewClient(cfg.RemoteStoreURL, cfg.RemoteStoreAPIKey, cfg.RemoteTimeout)

	// Local cache + deletion ledger. File-backed by default; the ledger and
	// the archive set move to Postgres when DATABASE_URL is set.
	fileCache, err := cache.NewFileCache(cfg.CacheDir)
	if err != nil {
		log.Fatal(err)
	}

	var (
		db      *sql.DB
		ledger  usecase.DeletionLedger
		archive usecase.ArchiveRepository
	)
	if cfg.DatabaseURL != "" {
		db, err = database.NewDBConnection(cfg.DatabaseURL)
		if err != nil {
			log.Fatal(err)
		}
		defer db.Close()
		ledger = database.NewLedgerRepository(db)
		archive = database.NewArchiveRepository(db)
	} else {
		fileLedger, err := cache.NewFileLedger(cfg.CacheDir)
		if err != nil {
			log.Fatal(err)
		}
		ledger = fileLedger
	}

	// Event producer (optional).
	var (
		producer usecase.EventProducer
		rabbit   *queue.RabbitMQ
	)
	if cfg.RabbitMQURL != "" {
		rabbit, err = queue.NewRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			log.Fatal(err)
		}
		defer rabbit.Close()
		producer = queue.NewProducer(rabbit.Conn, rabbit.Ch)
	}

	// Engine.
	reconciler := usecase.NewReconciler(remote, fileCache, ledger, archive)
	reconciler.OnRun(func(active int, d usecase.Diagnostics) {
		middleware.RecordReconciliation(active, d.StaleRemoteRecords, d.InvalidRecords, d.NormalizedStages)
	})

	gateway := usecase.NewMutationGateway(remote, fileCache, ledger, reconciler, producer)
	gateway.SetRemoteTimeout(cfg.RemoteTimeout)
	gateway.OnMutation(middleware.RecordMutation)
	if db != nil {
		gateway.SetArchiveRecorder(database.NewArchiveRepository(db))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// First pass before serving, so the view is warm.
	view := reconciler.Refresh(ctx)
	log.Printf("initial reconciliation: %d active lead(s), diagnostics %+v", len(view.Leads), view.Diagnostics)

	// Background drift correction.
	go worker.NewReconcileWorker(reconciler, cfg.ReconcileInterval).Start(ctx)

	// Stale lead digests (optional).
	if cfg.SMTPHost != "" {
		sender := mail.NewEmailSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
		go worker.NewDigestWorker(reconciler, sender, cfg.DigestInterval).Start(ctx)
	}

	// Handlers.
	leadHandler := handlers.NewLeadHandler(reconciler, gateway)
	var rabbitConn *amqp.Connection
	if rabbit != nil {
		rabbitConn = rabbit.Conn
	}
	healthHandler := handlers.NewHealthHandler(db, rabbitConn, remote)

	// Router.
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
	}))

	r.Get("/leads", leadHandler.HandleList)
	r.Post("/leads", leadHandler.HandleCreate)
	r.Patch("/leads/{id}", leadHandler.HandleUpdate)
	r.Put("/leads/{id}/stage", leadHandler.HandleUpdateStage)
	r.Post("/leads/{id}/archive", leadHandler.HandleArchive)
	r.Delete("/leads/{id}", leadHandler.HandleDelete)
	r.Post("/reconcile", leadHandler.HandleReconcile)
	r.Get("/health", healthHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())

	log.Printf("leadsync API listening on %s", cfg.HTTPAddr)
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		log.Fatal(err)
	}
}

package admin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/kbforge/curatex/internal/api/handlers"
	"github.com/kbforge/curatex/internal/config"
	"github.com/kbforge/curatex/internal/domain"
	"github.com/kbforge/curatex/internal/jobs"
	"github.com/kbforge/curatex/internal/openai"
	"github.com/kbforge/curatex/internal/repository"
	"github.com/kbforge/curatex/internal/server"
	"github.com/kbforge/curatex/internal/service"
	"github.com/kbforge/curatex/internal/storage"
	"github.com/kbforge/curatex/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the curation API server",
		Long:  "Start the curatex API server and its background workers",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("no-workers", false, "Serve the API without the background workers")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	curationRepo := repository.NewCurationRepository(pool)
	documentRepo := repository.NewDocumentRepository(pool)
	namespaceRepo := repository.NewNamespaceRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	tenantRepo := repository.NewTenantRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	uuidGen := &service.DefaultUUIDGenerator{}
	authSvc := service.NewAuthService(tenantRepo, apiKeyRepo, uuidGen)

	if cfg.InitTenantName != "" {
		if err := bootstrapInitialTenant(ctx, cfg, tenantRepo, authSvc); err != nil {
			return fmt.Errorf("failed to bootstrap initial tenant: %w", err)
		}
	}

	var materializer service.AttachmentMaterializer
	if cfg.HasS3() {
		s3Config := storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		}
		s3Client, err := storage.NewS3Client(ctx, s3Config)
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		materializer = service.NewAttachmentService(attachmentRepo, s3Client)
	}

	var scanner service.ItemScanner
	var scanProcessor jobs.JobProcessor
	if cfg.HasOpenAI() {
		embeddingClient := openai.NewClient(cfg.OpenAIAPIKey)
		scanSvc := service.NewScanService(embeddingClient, curationRepo, documentRepo, cfg.ScanBatchSize)
		scanner = scanSvc
		scanProcessor = scanSvc
	} else {
		log.Println("OPENAI_API_KEY not set: semantic scanning disabled, hash gate only")
	}

	curationSvc := service.NewCurationService(
		curationRepo, documentRepo, namespaceRepo, attachmentRepo,
		txRunner, scanner, materializer,
	)

	noWorkers, _ := cmd.Flags().GetBool("no-workers")
	var workers []*jobs.Worker
	if !noWorkers {
		if scanProcessor != nil {
			workers = append(workers, jobs.NewWorker("scan", scanProcessor, cfg.ScanInterval))
		}
		workers = append(workers,
			jobs.NewWorker("promotion", jobs.NewPromotionWorker(curationSvc, cfg.PromotionBatch), cfg.PromotionInterval),
			jobs.NewWorker("retention", jobs.NewRetentionReaper(curationSvc), cfg.ReapInterval),
		)
		for _, w := range workers {
			go w.Start(ctx)
		}
	}

	routerCfg := server.RouterConfig{
		AuthValidator:   authSvc,
		CurationHandler: handlers.NewCurationHandler(curationSvc, scanner),
		AuthHandler:     handlers.NewAuthHandler(authSvc),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	for _, w := range workers {
		w.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func bootstrapInitialTenant(ctx context.Context, cfg *config.Config, tenantRepo *repository.TenantRepository, authSvc *service.AuthService) error {
	tenant, err := tenantRepo.GetByName(ctx, cfg.InitTenantName)
	if err != nil && !errors.Is(err, domain.ErrTenantNotFound) {
		return fmt.Errorf("failed to check existing tenant: %w", err)
	}

	if tenant == nil {
		tenant, err = authSvc.CreateTenant(ctx, cfg.InitTenantName)
		if err != nil {
			return fmt.Errorf("failed to create tenant: %w", err)
		}
		log.Printf("bootstrap: created tenant '%s' (id: %s)", tenant.Name, tenant.ID)
	} else {
		log.Printf("bootstrap: tenant '%s' already exists (id: %s)", tenant.Name, tenant.ID)
	}

	if cfg.InitAPIKey != "" {
		if !service.IsValidAPIToken(cfg.InitAPIKey) {
			return fmt.Errorf("invalid CURATEX_INIT_API_KEY format (expected 'cx_<64 hex chars>')")
		}

		// An already-registered key validates cleanly; anything else means
		// it still needs to be created.
		if _, err := authSvc.ValidateAPIKey(ctx, cfg.InitAPIKey); err == nil {
			log.Println("bootstrap: API key already exists")
			return nil
		}

		if err := authSvc.CreateAPIKeyWithToken(ctx, tenant.ID, "bootstrap", cfg.InitAPIKey); err != nil {
			return fmt.Errorf("failed to create API key: %w", err)
		}
		log.Printf("bootstrap: created API key")
	}

	return nil
}

func runMigrations(databaseURL string) error {
	// golang-migrate works over database/sql, not the pgx pool
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}

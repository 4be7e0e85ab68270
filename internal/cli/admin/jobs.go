package admin

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/kbforge/curatex/internal/config"
	"github.com/kbforge/curatex/internal/jobs"
	"github.com/kbforge/curatex/internal/openai"
	"github.com/kbforge/curatex/internal/repository"
	"github.com/kbforge/curatex/internal/service"
	"github.com/kbforge/curatex/internal/storage"
)

// ScanCmd returns the scan command, a one-shot run of the duplicate scan
// pass that the serve command runs on a timer.
func ScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run one duplicate scan pass",
		Long:  "Scan unscanned pending items against approved content and exit",
		RunE:  runScanOnce,
	}
}

func runScanOnce(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasOpenAI() {
		return fmt.Errorf("CURATEX_OPENAI_API_KEY is required for scanning")
	}

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	curationRepo := repository.NewCurationRepository(pool)
	documentRepo := repository.NewDocumentRepository(pool)

	embeddingClient := openai.NewClient(cfg.OpenAIAPIKey)
	scanSvc := service.NewScanService(embeddingClient, curationRepo, documentRepo, cfg.ScanBatchSize)

	if err := scanSvc.ProcessJobs(ctx); err != nil {
		return fmt.Errorf("scan pass failed: %w", err)
	}

	fmt.Println("Scan pass complete")
	return nil
}

// PromoteCmd returns the promote command, a one-shot promotion pass over
// approved items that have not reached the document store yet.
func PromoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Run one promotion pass",
		Long:  "Promote approved but unpromoted items into the document store and exit",
		RunE:  runPromoteOnce,
	}

	cmd.Flags().IntP("batch", "b", 0, "Batch size (defaults to CURATEX_PROMOTION_BATCH)")

	return cmd
}

func runPromoteOnce(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	batch, _ := cmd.Flags().GetInt("batch")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if batch <= 0 {
		batch = cfg.PromotionBatch
	}

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	curationSvc, err := buildCurationService(ctx, cfg, pool)
	if err != nil {
		return err
	}

	worker := jobs.NewPromotionWorker(curationSvc, batch)
	if err := worker.ProcessJobs(ctx); err != nil {
		return fmt.Errorf("promotion pass failed: %w", err)
	}

	fmt.Println("Promotion pass complete")
	return nil
}

// ReapCmd returns the reap command, a one-shot retention sweep.
func ReapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reap",
		Short: "Run one retention sweep",
		Long:  "Purge expired rejected items and expired history records and exit",
		RunE:  runReapOnce,
	}
}

func runReapOnce(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	curationSvc, err := buildCurationService(ctx, cfg, pool)
	if err != nil {
		return err
	}

	reaper := jobs.NewRetentionReaper(curationSvc)
	if err := reaper.ProcessJobs(ctx); err != nil {
		return fmt.Errorf("retention sweep failed: %w", err)
	}

	fmt.Println("Retention sweep complete")
	return nil
}

// buildCurationService wires the curation service the same way serve does,
// with scanning and attachment storage enabled only when configured.
func buildCurationService(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (*service.CurationService, error) {
	curationRepo := repository.NewCurationRepository(pool)
	documentRepo := repository.NewDocumentRepository(pool)
	namespaceRepo := repository.NewNamespaceRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	var scanner service.ItemScanner
	if cfg.HasOpenAI() {
		embeddingClient := openai.NewClient(cfg.OpenAIAPIKey)
		scanner = service.NewScanService(embeddingClient, curationRepo, documentRepo, cfg.ScanBatchSize)
	}

	var materializer service.AttachmentMaterializer
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		materializer = service.NewAttachmentService(attachmentRepo, s3Client)
	}

	return service.NewCurationService(
		curationRepo, documentRepo, namespaceRepo, attachmentRepo,
		txRunner, scanner, materializer,
	), nil
}

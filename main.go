package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
	"google.golang.org/api/vision/v1"

	"github.com/taxbasehub/fiscal-audit/classifier"
	"github.com/taxbasehub/fiscal-audit/client"
	"github.com/taxbasehub/fiscal-audit/config"
	"github.com/taxbasehub/fiscal-audit/handler"
	"github.com/taxbasehub/fiscal-audit/service"
)

func main() {
	once := flag.Bool("once", false, "run one reconciliation batch and exit")
	flag.Parse()

	// Load .env if present, without failing when missing.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: failed to load .env: %v", err)
	}

	cfg := config.LoadConfig()
	logger := config.GetLogger()
	ctx := context.Background()

	if cfg.SpreadsheetID == "" || cfg.RootFolderID == "" || cfg.LedgerTableID == "" {
		log.Fatal("SPREADSHEET_ID, ROOT_FOLDER_ID and LEDGER_TABLE_ID must be set")
	}

	credBytes, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		log.Fatalf("Failed to read credentials file %s: %v", cfg.CredentialsFile, err)
	}
	googleCreds, err := google.CredentialsFromJSON(ctx, credBytes,
		drive.DriveScope,
		sheets.SpreadsheetsScope,
		vision.CloudPlatformScope,
	)
	if err != nil {
		log.Fatalf("Failed to parse credentials: %v", err)
	}
	creds := option.WithCredentials(googleCreds)

	driveSvc, err := drive.NewService(ctx, creds)
	if err != nil {
		log.Fatalf("Failed to create drive service: %v", err)
	}
	sheetsSvc, err := sheets.NewService(ctx, creds)
	if err != nil {
		log.Fatalf("Failed to create sheets service: %v", err)
	}
	visionSvc, err := vision.NewService(ctx, creds)
	if err != nil {
		log.Fatalf("Failed to create vision service: %v", err)
	}

	// The ledger table ID is project.dataset.table; the client binds to
	// its project.
	projectID := strings.SplitN(cfg.LedgerTableID, ".", 2)[0]
	bqClient, err := bigquery.NewClient(ctx, projectID, creds)
	if err != nil {
		log.Fatalf("Failed to create bigquery client: %v", err)
	}
	defer bqClient.Close()

	driveClient := client.NewDriveClient(driveSvc)
	sheetsClient := client.NewSheetsClient(sheetsSvc, cfg.SpreadsheetID)
	ocrClient := client.NewVisionOCRClient(visionSvc, cfg.TesseractDataPath, cfg.OCRLanguage, logger)
	ledger := client.NewBigQueryLedger(bqClient, cfg.LedgerTableID, cfg.DiscardTableID, logger)

	registry := service.NewReferenceRegistry(sheetsClient, cfg.SheetRange, cfg.FirmTaxID, logger)
	watcher := service.NewDriveWatcher(driveClient, cfg.RootFolderID, cfg.IgnoreFolders,
		cfg.WatchWindowDays, time.Duration(cfg.FolderTimeoutSec)*time.Second, logger)
	extractor := service.NewContentExtractor(driveClient, service.NewPDFProcessor(), ocrClient, cfg.FirmTaxID, logger)

	pipeline := service.NewAuditPipeline(
		classifier.New(),
		extractor,
		registry,
		watcher,
		ledger,
		cfg.MaxWorkers,
		cfg.DuplicateWindowDays,
		logger,
	)

	if *once {
		summary, err := pipeline.Run(ctx)
		if err != nil {
			log.Fatalf("Batch failed: %v", err)
		}
		log.Printf("Batch done: %d queued, %d saved, %d blacklisted, %d duplicates, %d crashed",
			summary.Total, summary.Saved, summary.Blacklisted, summary.Duplicates, summary.Crashed)
		return
	}

	auditHandler := handler.NewAuditHandler(pipeline, ledger)

	router := gin.Default()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "Fiscal Audit Reconciliation",
		})
	})

	api := router.Group("/api/v1")
	if cfg.AdminPassword != "" {
		api.Use(gin.BasicAuth(gin.Accounts{cfg.AdminUser: cfg.AdminPassword}))
	}
	{
		audit := api.Group("/audit")
		{
			audit.POST("/run", auditHandler.RunAudit)
			audit.GET("/unidentified", auditHandler.ListUnidentified)
			audit.POST("/allocate", auditHandler.AllocateFile)
			audit.POST("/discard", auditHandler.DiscardFile)
		}
	}

	log.Printf("Starting Fiscal Audit Reconciliation Service on port %s", cfg.ServerPort)
	if err := router.Run(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

package main

import (
	"context"
	"errors"
	"log"
	"os"

	"grnsync/cmd/controllers"
	"grnsync/internal/config"
	"grnsync/internal/gapi"
	"grnsync/internal/models"
	"grnsync/internal/repo"
	"grnsync/internal/services"
	"grnsync/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
)

const defaultConfigPath = "secrets.json"

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = defaultConfigPath
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zapLogger, err := logger.New()
	if err != nil {
		log.Fatalf("create logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	db, err := repo.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("connect to database: %v", err)
	}

	if err := repo.Migrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	ctx := context.Background()

	httpClient, err := gapi.NewHTTPClient(ctx, cfg.CredentialsPath, cfg.TokenPath)
	if err != nil {
		log.Fatalf("authenticate: %v", err)
	}

	mailbox, err := gapi.NewGmailMailbox(ctx, httpClient)
	if err != nil {
		log.Fatalf("create gmail mailbox: %v", err)
	}

	fileStore, err := gapi.NewDriveStore(ctx, httpClient)
	if err != nil {
		log.Fatalf("create drive store: %v", err)
	}

	ledgerStore, err := gapi.NewSheetsLedger(ctx, httpClient)
	if err != nil {
		log.Fatalf("create sheets ledger: %v", err)
	}

	logService, err := services.NewLogService(db, zapLogger)
	if err != nil {
		log.Fatalf("create log service: %v", err)
	}

	summaryService, err := services.NewSummaryService(db)
	if err != nil {
		log.Fatalf("create summary service: %v", err)
	}

	harvestService, err := services.NewHarvestService(mailbox, fileStore, logService, cfg.Mail)
	if err != nil {
		log.Fatalf("create harvest service: %v", err)
	}

	xlsxService, err := services.NewXlsxService()
	if err != nil {
		log.Fatalf("create xlsx service: %v", err)
	}

	cleanService, err := services.NewCleanService()
	if err != nil {
		log.Fatalf("create clean service: %v", err)
	}

	ledgerService, err := services.NewLedgerService(ledgerStore, logService)
	if err != nil {
		log.Fatalf("create ledger service: %v", err)
	}

	pipelineService, err := services.NewPipelineService(
		harvestService,
		fileStore,
		xlsxService,
		cleanService,
		ledgerService,
		summaryService,
		logService,
		cfg.Ingest,
		cfg.Summary,
	)
	if err != nil {
		log.Fatalf("create pipeline service: %v", err)
	}

	logsController, err := controllers.NewLogsController(logService)
	if err != nil {
		log.Fatalf("create logs controller: %v", err)
	}

	runController, err := controllers.NewRunController(pipelineService)
	if err != nil {
		log.Fatalf("create run controller: %v", err)
	}

	summariesController, err := controllers.NewSummariesController(summaryService)
	if err != nil {
		log.Fatalf("create summaries controller: %v", err)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	if err := controllers.RegisterHealthRoutes(router); err != nil {
		log.Fatalf("register health routes: %v", err)
	}
	if err := logsController.RegisterRoutes(router); err != nil {
		log.Fatalf("register logs routes: %v", err)
	}
	if err := runController.RegisterRoutes(router); err != nil {
		log.Fatalf("register run routes: %v", err)
	}
	if err := summariesController.RegisterRoutes(router); err != nil {
		log.Fatalf("register summaries routes: %v", err)
	}
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if err := startCron(pipelineService); err != nil {
		log.Fatalf("start cron: %v", err)
	}

	addr := ":8080"
	if err := router.Run(addr); err != nil {
		log.Fatalf("run server: %v", err)
	}
}

type pipelineRunner interface {
	Run(ctx context.Context) (models.RunSummary, error)
}

func startCron(service pipelineRunner) error {
	if service == nil {
		return errors.New("pipeline service is nil")
	}

	scheduler := cron.New()

	if _, err := scheduler.AddFunc("@every 3h", func() {
		summary, err := service.Run(context.Background())
		if err != nil {
			log.Printf("run pipeline: %v", err)
			return
		}
		if !summary.OverallSuccess {
			log.Printf("run finished with failures: harvest=%t ingest=%t", summary.HarvestSuccess, summary.IngestSuccess)
		}
	}); err != nil {
		return err
	}

	scheduler.Start()
	return nil
}

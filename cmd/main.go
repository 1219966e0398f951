package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"synthos-points/internal/blockchain"
	"synthos-points/internal/config"
	"synthos-points/internal/handler"
	"synthos-points/internal/models"
	"synthos-points/internal/repository"
	"synthos-points/internal/scheduler"
	"synthos-points/internal/service"
	"synthos-points/pkg/logger"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}

	db, err := initDatabase(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}
	defer closeDatabase(db)

	userRepo := repository.NewUserRepository(db)
	depositRepo := repository.NewDepositRepository(db)
	blockRepo := repository.NewBlockRepository(db)

	referralSvc := service.NewReferralService(userRepo, &cfg.Points)
	pointsSvc := service.NewPointsService(userRepo, depositRepo, &cfg.Points)
	depositSvc := service.NewDepositService(depositRepo, userRepo, blockRepo, referralSvc, &cfg.Points)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, chainCfg := range cfg.GetEnabledChains() {
		go startChainListener(ctx, chainCfg, depositSvc, blockRepo)
	}

	sweeper := scheduler.NewAwardSweeper(referralSvc, userRepo, depositRepo, &cfg.Points)
	if err := sweeper.Start(); err != nil {
		logger.Fatal("Failed to start award sweeper:", err)
	}
	defer sweeper.Stop()

	router := setupHTTPRouter(referralSvc, pointsSvc)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("Server starting on port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error:", err)
	}

	logger.Info("Server stopped")
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	if err := db.AutoMigrate(
		&models.UserPoints{},
		&models.Deposit{},
		&models.ProcessedBlock{},
	); err != nil {
		return nil, err
	}

	return db, nil
}

func closeDatabase(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("Failed to get database instance:", err)
		return
	}
	sqlDB.Close()
}

func startChainListener(ctx context.Context, chainCfg config.ChainConfig, depositSvc *service.DepositService, blockRepo *repository.BlockRepository) {
	client, err := blockchain.NewClient(&chainCfg)
	if err != nil {
		logger.Error("Failed to create blockchain client:", err)
		return
	}
	defer client.Close()

	lastProcessedBlock, err := blockRepo.GetLastProcessed(ctx, chainCfg.ID)
	if err != nil {
		logger.Error("Failed to get last processed block:", err)
		return
	}

	startBlock := lastProcessedBlock
	if startBlock == 0 && chainCfg.StartBlock > 0 {
		startBlock = chainCfg.StartBlock
	}

	logger.WithFields(map[string]interface{}{
		"chain_id":    chainCfg.ID,
		"start_block": startBlock,
		"vault":       chainCfg.VaultAddress,
	}).Info("启动入金监听器")

	listener := blockchain.NewDepositListener(&chainCfg, client, blockRepo)
	defer listener.Stop()
	go listener.Start(ctx, startBlock)

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-listener.Events():
			eventCtx, eventCancel := context.WithTimeout(ctx, 10*time.Second)

			timestamp, err := client.GetBlockTimestamp(eventCtx, event.BlockNum)
			if err != nil {
				logger.Error("Failed to get block timestamp:", err)
				eventCancel()
				continue
			}

			if err := depositSvc.ProcessDeposit(eventCtx, &chainCfg, event, timestamp); err != nil {
				logger.Error("Failed to process deposit:", err)
			}
			eventCancel()
		}
	}
}

func setupHTTPRouter(referralSvc *service.ReferralService, pointsSvc *service.PointsService) http.Handler {
	router := http.NewServeMux()

	referralHandler := handler.NewReferralHandler(referralSvc)
	pointsHandler := handler.NewPointsHandler(pointsSvc, referralSvc)

	router.HandleFunc("/api/referral-points", referralHandler.HandleReferralPoints)
	router.HandleFunc("/api/referral", referralHandler.HandleReferral)
	router.HandleFunc("/api/points/login", pointsHandler.HandleLogin)
	router.HandleFunc("/api/points/feedback", pointsHandler.HandleFeedback)
	router.HandleFunc("/api/points/share", pointsHandler.HandleShare)
	router.HandleFunc("/api/points/testnet-claim", pointsHandler.HandleTestnetClaim)
	router.HandleFunc("/api/points/list", pointsHandler.ListPoints)
	router.HandleFunc("/api/points/", pointsHandler.GetPoints)
	router.HandleFunc("/api/stats", pointsHandler.GetStats)
	router.HandleFunc("/health", handler.HandleHealth)

	return router
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fleamarket-backend/internal/client"
	"fleamarket-backend/internal/config"
	"fleamarket-backend/internal/repository"
	"fleamarket-backend/internal/server"
	"fleamarket-backend/internal/service"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	logger := config.NewLogger(cfg.Log)

	db := client.InitDBClient(cfg.DatabaseURL)

	confirmRepo := repository.NewConfirmRequestRepository(db)
	itemRepo := repository.NewItemRepository(db)
	historyRepo := repository.NewPurchaseHistoryRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	prices := service.NewPriceResolver(itemRepo)
	settlement := service.NewSettlement(db, itemRepo, historyRepo, prices, logger, nil)
	chat := service.NewChatWriter(db, messageRepo, nil)

	confirmService := service.NewConfirmService(
		confirmRepo,
		itemRepo,
		prices,
		settlement,
		chat,
		logger,
		nil,
		time.Duration(cfg.Confirm.ExpiryHours)*time.Hour,
	)
	userService := service.NewUserService(historyRepo, messageRepo)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	// Init HTTP server
	srv := server.NewServer(confirmService, userService, cfg.JWTSecret)

	logger.Info("Starting HTTP server on ", serverAddr)
	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	logger.Info("Signal received, starting graceful shutdown...")

	_, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(); err != nil {
		logger.Fatal("HTTP server shutdown error")
	}
}

// Package main はAPIサーバーのエントリポイント。
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

	"github.com/joho/godotenv"

	"rsa-visualizer-service/config"
	"rsa-visualizer-service/internal/cipher"
	"rsa-visualizer-service/internal/handler"
	"rsa-visualizer-service/internal/infra"
	"rsa-visualizer-service/internal/repository"
	"rsa-visualizer-service/internal/usecase"
	"rsa-visualizer-service/migrations"
)

func main() {
	ctx := context.Background()

	// .envファイルを読み込む（存在しない場合は無視）
	// 既存の環境変数は上書きしない
	_ = godotenv.Load()

	cfg := config.Load()

	// トレーサー初期化（ロガー設定の前に実行）
	tp, err := infra.InitTracer(ctx, cfg)
	if err != nil {
		slog.Error("failed to init tracer", "error", err)
		os.Exit(1)
	}
	if tp != nil {
		defer func() {
			if err := tp.Shutdown(ctx); err != nil {
				slog.Error("failed to shutdown tracer", "error", err)
			}
		}()
	}

	infra.SetupLogger(cfg)

	// 鍵生成器
	pools := cipher.PoolsFrom(cfg.PrimePool, cfg.ExponentPool)
	keygen, err := cipher.NewGenerator(pools, nil)
	if err != nil {
		slog.Error("invalid key generation pools", "error", err)
		os.Exit(1)
	}

	// DB初期化
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is not set")
		os.Exit(1)
	}
	db, err := infra.NewDB(cfg.DatabaseURL, cfg)
	if err != nil {
		slog.Error("failed to init database", "error", err)
		os.Exit(1)
	}
	if cfg.AutoMigrate {
		migrationService := usecase.NewMigrationService(repository.NewMigrationRepository(db), db, migrations.FS)
		if _, err := migrationService.ApplyMigrations(ctx); err != nil {
			slog.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
	}

	// KMSクライアント初期化（未設定の場合は秘密鍵を保存しない）
	var sealer usecase.KeySealer
	if cfg.KMSKeyName != "" {
		c, err := infra.NewKMSClient(ctx, cfg.KMSKeyName)
		if err != nil {
			slog.Error("failed to init KMS client", "error", err)
			os.Exit(1)
		}
		defer func() {
			if closeErr := c.Close(); closeErr != nil {
				slog.Error("failed to close KMS client", "error", closeErr)
			}
		}()
		sealer = c
	} else {
		slog.Warn("KMS_KEY_NAME is not set; private keys of finished runs will not be stored")
	}

	// DI
	runRepo := repository.NewRunRepository(db)
	demoService := usecase.NewDemoService(runRepo, sealer, keygen, usecase.DemoServiceConfig{
		Pacing: usecase.Pacing{
			StepDelay:  cfg.StepDelay,
			PauseDelay: cfg.PauseDelay,
		},
		DefaultMessage: cfg.DefaultMessage,
		MaxDemos:       cfg.MaxDemos,
	})
	cipherService := usecase.NewCipherService(keygen)
	router := handler.NewRouter(
		handler.NewDemoHandler(demoService),
		handler.NewCipherHandler(cipherService),
		cfg,
	)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		<-sigCh

		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("starting server",
		"port", cfg.Port,
		"primes", len(pools.Primes),
		"exponents", len(pools.Exponents),
	)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	// 実行中のデモを止め、実行記録の保存を待つ
	demoService.Close()
	slog.Info("server stopped")
}

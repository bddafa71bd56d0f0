// Package main запускает HTTP-фасад кабинета заказов эко-сервиса.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ecocab/ecocab-orders/internal/backend"
	"github.com/ecocab/ecocab-orders/internal/config"
	"github.com/ecocab/ecocab-orders/internal/handler"
	"github.com/ecocab/ecocab-orders/internal/ledger"
	"github.com/ecocab/ecocab-orders/internal/mutation"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	client := backend.NewClient(cfg.OrdersAPIAddress, cfg.RequestTimeout)

	led := ledger.New(client, logger)
	coordinator := mutation.NewCoordinator(led, client, logger)

	h := handler.NewHandler(led, coordinator, logger)
	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Первичная загрузка: одна страница заказов и бонусный баланс
	g.Go(func() error {
		initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		if _, err := led.LoadNextPage(initCtx); err != nil {
			sugar.Warnw("initial orders load failed", "error", err.Error())
		}
		led.LoadBonuses(initCtx)
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting cabinet server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}

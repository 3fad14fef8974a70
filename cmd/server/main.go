package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-inventory-ledger/internal/booking"
	"github.com/iliyamo/hotel-inventory-ledger/internal/catalog"
	"github.com/iliyamo/hotel-inventory-ledger/internal/config"
	"github.com/iliyamo/hotel-inventory-ledger/internal/handler"
	"github.com/iliyamo/hotel-inventory-ledger/internal/inventory"
	"github.com/iliyamo/hotel-inventory-ledger/internal/ledger"
	"github.com/iliyamo/hotel-inventory-ledger/internal/logger"
	"github.com/iliyamo/hotel-inventory-ledger/internal/middleware"
	"github.com/iliyamo/hotel-inventory-ledger/internal/queue"
	"github.com/iliyamo/hotel-inventory-ledger/internal/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("open store", zap.Error(err))
	}
	defer func() { _ = store.Close(context.Background()) }()

	led := ledger.New(store, zl.Named("ledger"))
	cat := catalog.New(store, store, zl.Named("catalog"))
	boot := inventory.New(store, cat, led, zl.Named("inventory"))

	// Booking events and the audit consumer are optional.
	var events booking.Publisher
	qcfg := config.LoadQueueConfig()
	if qcfg.Enabled {
		pub := queue.NewPublisher(qcfg.URL, qcfg.PublishTimeout, zl.Named("events"))
		defer func() { _ = pub.Close() }()
		events = pub

		audit, closeAudit, err := queue.NewAuditLogger(qcfg.BookingLogPath)
		if err != nil {
			zl.Fatal("open booking audit log", zap.Error(err))
		}
		defer func() { _ = closeAudit() }()
		go func() {
			if err := queue.StartBookingConsumer(ctx, qcfg.URL, audit, zl.Named("consumer")); err != nil && !errors.Is(err, context.Canceled) {
				zl.Error("booking consumer stopped", zap.Error(err))
			}
		}()
	}
	bookings := booking.New(store, led, cat, events, zl.Named("booking"))

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.RequestID(), echomw.Recover(), middleware.RequestLogger(zl.Named("http")))

	rdb := config.NewRedisClient()
	if rdb == nil {
		zl.Warn("redis unavailable, response cache and rate limiting disabled")
	} else {
		defer func() { _ = rdb.Close() }()
	}
	ccfg := config.LoadCacheConfig()
	cache := router.Cache{
		Read:       middleware.NewRedisCache(ccfg, rdb, zl),
		Invalidate: middleware.InvalidateCache(ccfg, rdb, zl),
	}
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, zl)

	bh := handler.NewBookingHandler(bookings, cfg.RequestTimeout, zl)
	ih := handler.NewInventoryHandler(bookings, cat, boot, cfg.RequestTimeout, zl)
	ah := handler.NewAuthHandler(cfg, store, zl)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, ah, cfg.JWTSecret, limiter)
	router.RegisterStaff(e, bh, ih, cfg.JWTSecret, limiter, cache)
	router.RegisterAdmin(e, ih, cfg.JWTSecret, cache)

	addr := ":" + cfg.Port
	go func() {
		zl.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Error("shutdown", zap.Error(err))
	}
	zl.Info("server stopped")
}

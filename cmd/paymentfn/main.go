// Command paymentfn serves the checkout's create-order and verify-payment
// functions.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PiyushSaini04/optimus-event-flow-sub000/config"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/internal/paymentfn"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/internal/services"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/internal/services/gateway"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/monitoring"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/security"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/utils"
)

func main() {
	cfg := config.LoadConfig()
	if cfg.Gateway.KeyID == "" || cfg.Gateway.KeySecret == "" {
		log.Fatal("GATEWAY_KEY_ID and GATEWAY_KEY_SECRET are required")
	}

	gw := gateway.NewClient(gateway.ClientConfig{
		BaseURL:   cfg.Gateway.BaseURL,
		KeyID:     cfg.Gateway.KeyID,
		KeySecret: cfg.Gateway.KeySecret,
		Timeout:   cfg.Gateway.Timeout,
	})
	payments := services.NewPaymentService(gw, cfg.Gateway.KeySecret, cfg.Gateway.MaxAmount, monitoring.NewMonitor())

	opts := paymentfn.Options{AllowOrigins: cfg.AllowedOrigins}

	redisClient, err := utils.NewRedisClient(cfg.RedisOptions())
	if err != nil {
		// the functions still work, only unthrottled
		slog.Warn("Rate limiting disabled", "error", err)
	} else {
		defer redisClient.Close()
		limiter := security.NewRateLimiter(redisClient, cfg.RateLimitPerMinute)
		opts.RateLimit = limiter.PaymentRateLimit()
		opts.AntiBot = limiter.AntiBotMiddleware()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.PaymentFnPort,
		Handler:           paymentfn.NewServer(paymentfn.NewHandler(payments), opts),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("Payment functions listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Payment functions failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down payment functions...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("srv.Shutdown()", "error", err)
	}
}

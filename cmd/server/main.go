package main

import (
	"database/sql"
	"log"
	"net/http"

	"smartwin-be/internal/config"
	"smartwin-be/internal/db"
	"smartwin-be/internal/logger"
	"smartwin-be/internal/metrics"
	"smartwin-be/internal/middleware"
	"smartwin-be/internal/notifier"
	"smartwin-be/internal/payment"
	"smartwin-be/internal/payment/webhook"
	"smartwin-be/internal/utils"
)

// Seams for tests.
var (
	initDBFunc      = db.InitDB
	startServerFunc = http.ListenAndServe
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg := config.LoadConfig()

	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := initDBFunc(cfg)
	defer database.Close()

	router := newServer(cfg, database)

	logger.L().Sugar().Infof("Payment server running on port %s", cfg.AppPort)
	return startServerFunc(":"+cfg.AppPort, router)
}

// newServer wires the payment pipeline and returns the root handler.
func newServer(cfg *config.Config, database *sql.DB) http.Handler {
	registry := metrics.NewRegistry()

	repo := payment.NewRepository(database)
	gateway := payment.NewPesapalGateway(cfg)
	resend := notifier.NewResendNotifier(cfg)

	svc := payment.NewService(repo, gateway, resend, registry, cfg)

	paymentHandler := payment.NewHandler(svc)
	ipnHandler := webhook.NewHandler(svc)

	return setupRouter(paymentHandler.SubmitPayment, ipnHandler.HandleIPN, registry, cfg.CORSAllowedOrigin)
}

func setupRouter(submitPayment, handleIPN http.HandlerFunc, registry *metrics.Registry, corsOrigin string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/payments", submitPayment)
	mux.HandleFunc("/webhook/pesapal", handleIPN)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "OK",
			"metrics": registry.Snapshot(),
		})
	})

	var handler http.Handler = mux
	handler = middleware.RateLimitMiddleware(handler)
	handler = middleware.CORS(corsOrigin)(handler)
	handler = logger.LoggingMiddleware(handler)
	handler = logger.RequestIDMiddleware(handler)
	return handler
}

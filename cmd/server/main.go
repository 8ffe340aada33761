package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mealtab/kitty/internal/api"
	"github.com/mealtab/kitty/internal/ledger"
	"github.com/mealtab/kitty/internal/storage/sqlite"
	"github.com/mealtab/kitty/pkg/logging"
)

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func configFromEnv() ledger.Config {
	cfg := ledger.DefaultConfig()

	if v := os.Getenv("PENDING_DURATION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Error("Invalid PENDING_DURATION", "value", v, "error", err)
			os.Exit(1)
		}
		cfg.PendingDuration = d
	}

	if v := os.Getenv("MINIMUM_BALANCE"); v != "" {
		floor, err := decimal.NewFromString(v)
		if err != nil {
			slog.Error("Invalid MINIMUM_BALANCE", "value", v, "error", err)
			os.Exit(1)
		}
		cfg.MinimumBalance = floor
	}

	return cfg
}

func main() {
	logging.Setup()

	dbPath := getEnv("DB_PATH", "./data/kitty.db")
	addr := getEnv("LISTEN_ADDR", ":8080")
	cfg := configFromEnv()

	store, err := sqlite.New(dbPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", dbPath)

	svc := ledger.New(store, cfg)

	mux := http.NewServeMux()
	api.NewHandler(svc).Register(mux)
	mux.Handle("/metrics", promhttp.Handler())

	// Add logging and CORS middleware
	loggedHandler := loggingMiddleware(corsMiddleware(mux))

	// Wrap with h2c so collaborators can speak HTTP/2 without TLS
	h2cHandler := h2c.NewHandler(loggedHandler, &http2.Server{})

	slog.Info("Ledger server starting",
		"address", addr,
		"pending_duration", cfg.PendingDuration,
		"minimum_balance", cfg.MinimumBalance.StringFixed(2),
	)
	if err := http.ListenAndServe(addr, h2cHandler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		slog.Info("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

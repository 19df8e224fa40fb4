/*
main.go - Ledger daemon entry point

PURPOSE:
  Starts the credit ledger service: configuration, dependency
  injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (best-effort) and parse flags
  2. Open the grant store backend
  3. Load the credit-pack catalog
  4. Wire grant service -> handler -> router
  5. Start the server with graceful shutdown

CONFIGURATION:
  -port    HTTP server port            (env LEDGERD_PORT, default 8080)
  -store   Backend: memory|sqlite|redis (env LEDGERD_STORE, default sqlite)
  -dsn     sqlite path or redis addr   (env LEDGERD_DSN, default ledger.db)
  -packs   Catalog YAML path; empty uses the built-in packs
           (env LEDGERD_PACKS)
  -pretty  Human-readable log output instead of JSON

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the store
  4. Exit
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/waveform/credit-engine/api"
	"github.com/waveform/credit-engine/catalog"
	"github.com/waveform/credit-engine/grant"
	"github.com/waveform/credit-engine/store"
)

func main() {
	// .env is optional; real deployments inject env directly.
	_ = godotenv.Load()

	port := flag.Int("port", envInt("LEDGERD_PORT", 8080), "HTTP server port")
	storeKind := flag.String("store", envStr("LEDGERD_STORE", "sqlite"), "store backend: memory|sqlite|redis")
	dsn := flag.String("dsn", envStr("LEDGERD_DSN", "ledger.db"), "sqlite path or redis address")
	packsPath := flag.String("packs", envStr("LEDGERD_PACKS", ""), "catalog YAML path (empty = built-in)")
	pretty := flag.Bool("pretty", false, "human-readable log output")
	flag.Parse()

	log := newLogger(*pretty)

	// Store
	st, err := store.Open(*storeKind, *dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open grant store")
	}
	defer st.Close()

	// Catalog
	packs := catalog.Default()
	if *packsPath != "" {
		packs, err = catalog.Load(*packsPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *packsPath).Msg("failed to load catalog")
		}
	}

	// Wiring
	grants := grant.NewService(st, packs, log)
	handler := api.NewHandler(grants)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Int("port", *port).
			Str("store", *storeKind).
			Strs("packs", packs.IDs()).
			Msg("ledger daemon starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}

	log.Info().Msg("server stopped")
}

func newLogger(pretty bool) zerolog.Logger {
	if pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

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

	"fieldguard/internal/platform"
	"fieldguard/internal/server"
)

func main() {
	logger := log.New(os.Stderr, "guardd: ", log.LstdFlags)

	if err := platform.DisableCoreDumps(); err != nil {
		logger.Printf("core dump hardening failed: %v", err)
	}

	cfg := server.Config{
		MongoURI: os.Getenv("FIELDGUARD_MONGO_URI"),
		MongoDB:  os.Getenv("FIELDGUARD_MONGO_DB"),
	}
	if iss := os.Getenv("FIELDGUARD_JWT_ISSUER"); iss != "" {
		cfg.JWTIssuer = iss
	}
	if ttl := os.Getenv("FIELDGUARD_TOKEN_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			logger.Fatalf("bad FIELDGUARD_TOKEN_TTL: %v", err)
		}
		cfg.TokenTTL = d
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, cfg)
	if err != nil {
		logger.Fatalf("startup: %v", err)
	}

	addr := os.Getenv("FIELDGUARD_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shCtx)
		_ = srv.Close(shCtx)
	}()

	logger.Printf("listening on %s", addr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal(err)
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"biosync/internal/app"
	"biosync/internal/config"
	"biosync/internal/identity"
	"biosync/internal/presence"
	"biosync/internal/server"
	"biosync/internal/store"
	"biosync/internal/util"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config: %v\n", err)
		os.Exit(1)
	}
	util.InitLogger(cfg.LogLevel)

	dataStore, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		util.Fatal("failed to init postgres store", "err", err)
	}

	var profiles identity.Source
	if cfg.IdentityServiceURL != "" {
		client := identity.NewClient(cfg.IdentityServiceURL, cfg.IdentityAPIKey)
		if cfg.RedisAddr != "" {
			profiles = identity.NewProfileCache(cfg.RedisAddr, cfg.RedisPassword,
				config.ParseProfileCacheTTL(cfg), client)
		} else {
			profiles = client
		}
	}

	var verifier *identity.Verifier
	if cfg.IdentityJWKSURL != "" {
		verifier, err = identity.NewVerifier(identity.VerifierConfig{
			JWKSURL:  cfg.IdentityJWKSURL,
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		})
		if err != nil {
			util.Fatal("failed to init identity verifier", "err", err)
		}
	}

	appCore, err := app.New(app.Config{
		Store:    dataStore,
		Presence: presence.NewDirectory(),
		Profiles: profiles,
	})
	if err != nil {
		util.Fatal("failed to init app", "err", err)
	}

	httpServer := server.New(server.Config{
		App:      appCore,
		Verifier: verifier,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:    addr,
		Handler: httpServer.Router(),
		// No ReadTimeout: the socket gateway holds connections open
		// indefinitely.
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		util.Fatal("server error", "err", err)
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"soundshelf/internal/auth"
	"soundshelf/internal/config"
	"soundshelf/internal/database"
	"soundshelf/internal/ingest"
	"soundshelf/internal/logging"
	"soundshelf/internal/metadata"
	"soundshelf/internal/metrics"
	"soundshelf/internal/ngrok"
	"soundshelf/internal/server"
	"soundshelf/internal/storage"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the catalog HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("error configuring logging: %w", err)
	}

	hasher, err := auth.NewHasher(cfg.Users)
	if err != nil {
		return err
	}

	db, err := database.NewDatabase(cfg.Database, logger, database.WithPasswords(hasher))
	if err != nil {
		logger.WithError(err).Error("Error initializing database")
		return err
	}
	defer db.Close()

	local := storage.NewLocal(cfg.Storage.AudioDir, cfg.Storage.ImageDir, cfg.Storage.GenerateNames, logger)
	if err := local.EnsureDirs(); err != nil {
		logger.WithError(err).Error("Error creating media directories")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var mirror storage.Mirror
	if cfg.Mirror.Enabled {
		m, err := storage.NewMinioMirror(ctx, cfg.Mirror, logger)
		if err != nil {
			logger.WithError(err).Error("Error connecting to media mirror")
			return err
		}
		mirror = m
	}

	ingester := ingest.New(db, local, metadata.NewExtractor(logger), mirror, logger)

	opts := []server.Option{}
	if cfg.Metrics.Enabled {
		opts = append(opts, server.WithMetrics(metrics.New()))
	}

	tunnel, err := ngrok.NewService(&cfg.Ngrok, logger)
	if err != nil {
		logger.WithError(err).Error("Error configuring ngrok")
		return err
	}
	if tunnel != nil {
		opts = append(opts, server.WithTunnel(tunnel))
	}

	musicServer := server.NewMusicServer(cfg, db, local, ingester, logger, opts...)
	if err := musicServer.Run(ctx); err != nil {
		logger.WithError(err).Error("Server stopped with error")
		return err
	}
	return nil
}

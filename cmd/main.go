package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"librarycatalog/internal/archive"
	"librarycatalog/internal/config"
	"librarycatalog/internal/console"
	"librarycatalog/internal/fileops"
	"librarycatalog/internal/handlers"
	"librarycatalog/internal/logger"
	"librarycatalog/internal/services"
)

const shutdownTimeout = 10 * time.Second

func main() {
	flags := config.Flags()
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.LogLevel(cfg.LogLevel), os.Stderr, cfg.AppEnv)

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error().Err(err).Msg("exiting")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	library := services.NewLibraryService(
		services.WithLogger(log.With().Str("component", "library").Logger()),
		services.WithDefaultLoanDays(cfg.Library.LoanDays),
		services.WithFinePerDay(cfg.Library.FinePerDay),
	)
	if cfg.Library.SeedSampleData {
		if err := services.LoadSampleData(library); err != nil {
			return fmt.Errorf("seed sample data: %w", err)
		}
	}

	var exporter *archive.Exporter
	if cfg.Archive.Enabled() {
		db, err := archive.Open(cfg.Archive.Driver, cfg.Archive.DSN)
		if err != nil {
			return err
		}
		defer archive.Close(db)
		exporter = archive.NewExporter(db, library, log.With().Str("component", "archive").Logger())
	}

	if cfg.Server.Enabled {
		var opts []handlers.Option
		if exporter != nil {
			opts = append(opts, handlers.WithArchive(exporter))
		}
		return serve(ctx, cfg.Server, library, log, opts...)
	}

	files := fileops.NewService(library, cfg.Library.StrictCSV, log.With().Str("component", "files").Logger())
	opts := []console.Option{console.WithLogger(log)}
	if exporter != nil {
		opts = append(opts, console.WithArchive(exporter))
	}

	err := console.NewMenu(os.Stdin, os.Stdout, library, files, opts...).Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func serve(ctx context.Context, cfg config.ServerConfig, library services.LibraryService, log zerolog.Logger, opts ...handlers.Option) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), handlers.RequestLogger(log))
	handlers.RegisterRoutes(router, library, log, opts...)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

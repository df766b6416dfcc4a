package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nurpe/gigflow/internal/app"
	"github.com/nurpe/gigflow/internal/config"
	"github.com/nurpe/gigflow/internal/db"
	"github.com/nurpe/gigflow/internal/logger"
	"github.com/nurpe/gigflow/internal/reconciler"
	"github.com/nurpe/gigflow/internal/tracing"
)

type rootOptions struct {
	cfg *config.Config
	log zerolog.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "gigflow",
		Short:         "Gig marketplace hiring service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			opts.cfg = cfg
			opts.log = logger.New(cfg.Environment)
			return nil
		},
	}

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newReconcileCommand(opts))
	return cmd
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, realtime endpoints and reconciler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log := opts.cfg, opts.log
			if cfg.Reconcile.Enabled {
				if err := reconciler.ValidateSchedule(cfg.Reconcile.Schedule); err != nil {
					return fmt.Errorf("invalid RECONCILE_SCHEDULE: %w", err)
				}
			}

			if cfg.Telemetry.TracingEnabled {
				shutdown, err := tracing.Init("gigflow", os.Stderr)
				if err != nil {
					return fmt.Errorf("init tracing: %w", err)
				}
				defer func() {
					if err := shutdown(context.Background()); err != nil {
						log.Error().Err(err).Msg("tracer shutdown failed")
					}
				}()
			}

			application, err := app.New(cfg, log)
			if err != nil {
				return err
			}
			defer func() {
				if err := application.Close(); err != nil {
					log.Error().Err(err).Msg("close failed")
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return application.Run(ctx)
		},
	}
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log := opts.cfg, opts.log
			if cfg.DB.Driver == config.DriverMemory {
				return fmt.Errorf("nothing to migrate for driver %s", cfg.DB.Driver)
			}
			// db.New migrates on open when DB_AUTO_MIGRATE is set; force it here
			cfg.DB.AutoMigrate = false
			database, err := db.New(cfg, log)
			if err != nil {
				return err
			}
			if sqlDB, err := database.DB(); err == nil {
				defer sqlDB.Close()
			}
			if err := db.Migrate(database, cfg.DB.Driver); err != nil {
				return err
			}
			log.Info().Str("driver", cfg.DB.Driver).Msg("migrations applied")
			return nil
		},
	}
}

func newReconcileCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Run one cascade reconciliation sweep and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log := opts.cfg, opts.log
			store, _, database, err := app.OpenStore(cfg, log)
			if err != nil {
				return err
			}
			if database != nil {
				if sqlDB, err := database.DB(); err == nil {
					defer sqlDB.Close()
				}
			}

			report, err := reconciler.New(store, log).RunOnce(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "gigs swept: %d\nbids rejected: %d\norphaned assignments: %d\n",
				report.GigsSwept, report.BidsRejected, len(report.Orphaned))
			for _, gigID := range report.Orphaned {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", gigID)
			}
			return err
		},
	}
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/inkbook/studio/internal/application/services"
	"github.com/inkbook/studio/internal/domain/entities"
	"github.com/inkbook/studio/internal/infrastructure/config"
	"github.com/inkbook/studio/internal/infrastructure/database"
	"github.com/inkbook/studio/internal/infrastructure/logger"
	"github.com/inkbook/studio/internal/infrastructure/server"
	"github.com/inkbook/studio/internal/ports"
)

// Build information, set with -ldflags at release time.
var (
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "development"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the booking API server",
		Long:  "Start the booking API, the static front end and the notification workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), autoMigrate)
		},
	}

	cmd.Flags().BoolVar(&autoMigrate, "migrate", true, "Apply pending migrations on start (postgres driver only)")
	return cmd
}

// NewMigrateCommand creates the migrate command with subcommands
func NewMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
		Long:  "Manage database migrations for the postgres storage driver (up, down, version)",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Run all up migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(cmd.OutOrStdout(), "up")
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Run all down migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(cmd.OutOrStdout(), "down")
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print current migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showMigrationVersion(cmd.OutOrStdout())
		},
	})

	return migrateCmd
}

// NewBookingsCommand creates the booking management command
func NewBookingsCommand() *cobra.Command {
	bookingsCmd := &cobra.Command{
		Use:   "bookings",
		Short: "Inspect and manage stored bookings",
	}

	var filter ports.BookingFilter
	var status string

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List bookings in the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if status != "" {
				s := entities.BookingStatus(status)
				if !s.Valid() {
					return fmt.Errorf("unknown status %q", status)
				}
				filter.Status = &s
			}
			return withStore(cmd.Context(), func(ctx context.Context, store ports.BookingRepository) error {
				bookings, err := store.List(ctx, filter)
				if err != nil {
					return err
				}
				printBookings(cmd.OutOrStdout(), bookings)
				return nil
			})
		},
	}

	listCmd.Flags().StringVar(&filter.Date, "date", "", "Only bookings on this day (YYYY-MM-DD)")
	listCmd.Flags().StringVar(&filter.Email, "email", "", "Only bookings from this email")
	listCmd.Flags().StringVar(&status, "status", "", "Only bookings with this status")
	listCmd.Flags().IntVar(&filter.Limit, "limit", 0, "Maximum number of bookings")

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a booking by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid booking ID %q", args[0])
			}
			return withStore(cmd.Context(), func(ctx context.Context, store ports.BookingRepository) error {
				if err := store.Delete(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Booking %s deleted\n", id)
				return nil
			})
		},
	}

	bookingsCmd.AddCommand(listCmd, deleteCmd)
	return bookingsCmd
}

// NewAdminCommand creates the owner account helpers
func NewAdminCommand() *cobra.Command {
	adminCmd := &cobra.Command{
		Use:   "admin",
		Short: "Owner account helpers",
	}

	adminCmd.AddCommand(&cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := services.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	})

	return adminCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print InkBook version",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "InkBook %s\n", Version)
			fmt.Fprintf(out, "Build Date: %s\n", BuildDate)
			fmt.Fprintf(out, "Git Commit: %s\n", GitCommit)
		},
	}
}

func runServer(ctx context.Context, autoMigrate bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	store, err := server.OpenStore(cfg, autoMigrate, appLogger)
	if err != nil {
		appLogger.Errorw("Failed to open booking store", "driver", cfg.Storage.Driver, "error", err)
		return err
	}
	defer store.Close()

	srv, err := server.New(cfg, store, appLogger)
	if err != nil {
		appLogger.Errorw("Failed to initialize server", "error", err)
		return err
	}

	appLogger.Infow("Starting InkBook API server",
		"port", cfg.Server.Port,
		"environment", cfg.App.Environment,
		"storage", cfg.Storage.Driver,
		"notify", cfg.Notify.ChannelList(),
		"auth", cfg.Auth.Enabled,
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, srv, fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port), cfg.Server.ShutdownTimeout, appLogger)
}

type lifecycle interface {
	Start(address string) error
	Shutdown(ctx context.Context) error
}

// serve runs srv until ctx is cancelled or Start fails. Shutdown runs in
// both cases so queued notifications are flushed.
func serve(ctx context.Context, srv lifecycle, address string, timeout time.Duration, appLogger *logger.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(address)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			appLogger.Errorw("Server failed", "error", err)
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), min(timeout, 5*time.Second))
		defer cancel()
		if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
			appLogger.Errorw("Shutdown after start failure failed", "error", shutdownErr)
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Errorw("Graceful shutdown failed", "error", err)
		return err
	}

	appLogger.Infow("Server stopped")
	return nil
}

func withStore(ctx context.Context, fn func(context.Context, ports.BookingRepository) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	store, err := server.OpenStore(cfg, false, logger.NewNop())
	if err != nil {
		return err
	}
	defer store.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, store)
}

func printBookings(out io.Writer, bookings []*entities.Booking) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tTIME\tNAME\tCONTACT\tSTATUS\tSTYLE")
	for _, b := range bookings {
		contact := b.Email
		if contact == "" {
			contact = b.Phone
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", b.ID, b.Date, b.Time, b.Name, contact, b.Status, b.Style)
	}
	w.Flush()
}

func openMigrator() (*database.DB, *migrate.Migrate, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	m, err := db.Migrator()
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, m, nil
}

func runMigration(out io.Writer, direction string) error {
	db, m, err := openMigrator()
	if err != nil {
		return err
	}
	defer db.Close()

	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Fprintln(out, "No migrations to run")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Fprintf(out, "Migration %s completed successfully\n", direction)
	return nil
}

func showMigrationVersion(out io.Writer) error {
	db, m, err := openMigrator()
	if err != nil {
		return err
	}
	defer db.Close()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		fmt.Fprintln(out, "No migrations applied")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	fmt.Fprintf(out, "Current migration version: %d\n", version)
	fmt.Fprintf(out, "Dirty: %t\n", dirty)
	return nil
}

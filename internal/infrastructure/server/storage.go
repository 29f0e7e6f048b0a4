package server

import (
	"context"
	"fmt"

	"github.com/inkbook/studio/internal/adapters/repository"
	"github.com/inkbook/studio/internal/infrastructure/config"
	"github.com/inkbook/studio/internal/infrastructure/database"
	"github.com/inkbook/studio/internal/infrastructure/logger"
	"github.com/inkbook/studio/internal/ports"
)

// Store is an opened booking repository plus whatever must be released
// with it.
type Store struct {
	ports.BookingRepository
	db    *database.DB
	close func() error
}

// poolReporter is implemented by stores backed by a connection pool.
type poolReporter interface {
	PoolStats() map[string]interface{}
}

// Ping checks the database connection for the postgres driver and defers
// to the repository otherwise.
func (s *Store) Ping(ctx context.Context) error {
	if s.db != nil {
		return s.db.HealthCheck(ctx)
	}
	return s.BookingRepository.Ping(ctx)
}

// PoolStats reports connection pool statistics, or nil when the store has
// no pool.
func (s *Store) PoolStats() map[string]interface{} {
	if s.db == nil {
		return nil
	}
	return s.db.GetConnectionInfo()
}

// Close releases the underlying connection, if any.
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStore opens the booking store selected by cfg.Storage.Driver. The
// postgres driver applies pending migrations when migrate is true.
func OpenStore(cfg *config.Config, migrate bool, log *logger.Logger) (*Store, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		log.Warnw("Using in-memory booking store; bookings are lost on restart")
		return &Store{BookingRepository: repository.NewMemoryRepository()}, nil

	case config.DriverJSON:
		repo, err := repository.NewJSONRepository(cfg.Storage.File, log)
		if err != nil {
			return nil, fmt.Errorf("failed to open booking file: %w", err)
		}
		log.Infow("Booking file loaded", "path", repo.Path(), "bookings", repo.Len())
		return &Store{BookingRepository: repo}, nil

	case config.DriverPostgres:
		db, err := database.New(cfg.Database)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := db.MigrateUp(); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		log.Infow("Database connected", "host", cfg.Database.Host, "database", cfg.Database.Name)
		return &Store{
			BookingRepository: repository.NewPostgresRepository(db.DB),
			db:                db,
			close:             db.Close,
		}, nil
	}

	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

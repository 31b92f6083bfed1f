package storage

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/quotienthq/quotient/internal/common"
	"github.com/quotienthq/quotient/internal/interfaces"
	badgerstorage "github.com/quotienthq/quotient/internal/storage/badger"
	pgstorage "github.com/quotienthq/quotient/internal/storage/postgres"
)

// Manager selects the configured storage backends. Jobs and settings always
// live in Badger; the catalog can be swapped to Postgres with pgvector for
// database-side similarity search.
type Manager struct {
	badger  *badgerstorage.Manager
	catalog interfaces.CatalogStorage
	pg      *pgstorage.CatalogStorage
	logger  arbor.ILogger
}

// NewManager initializes storage per the configuration.
func NewManager(ctx context.Context, logger arbor.ILogger, config *common.StorageConfig) (*Manager, error) {
	badgerManager, err := badgerstorage.NewManager(logger, &config.Badger)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		badger:  badgerManager,
		catalog: badgerManager.CatalogStorage(),
		logger:  logger,
	}

	if config.Catalog == "postgres" {
		if config.Postgres.ConnString == "" {
			badgerManager.Close()
			return nil, fmt.Errorf("catalog backend is postgres but no connection string is configured")
		}
		pg, err := pgstorage.NewCatalogStorage(ctx, logger, config.Postgres.ConnString)
		if err != nil {
			badgerManager.Close()
			return nil, fmt.Errorf("failed to initialize postgres catalog: %w", err)
		}
		m.pg = pg
		m.catalog = pg
		logger.Info().Msg("Catalog backend: postgres (pgvector)")
	} else {
		logger.Info().Msg("Catalog backend: badger")
	}

	return m, nil
}

func (m *Manager) JobStorage() interfaces.JobStorage {
	return m.badger.JobStorage()
}

func (m *Manager) CatalogStorage() interfaces.CatalogStorage {
	return m.catalog
}

func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.badger.KeyValueStorage()
}

// BadgerDB exposes the raw Badger connection for the queue manager.
func (m *Manager) BadgerDB() *badgerstorage.BadgerDB {
	return m.badger.DB()
}

func (m *Manager) Close() error {
	if m.pg != nil {
		m.pg.Close()
	}
	return m.badger.Close()
}

package badger

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/quotienthq/quotient/internal/common"
	"github.com/quotienthq/quotient/internal/interfaces"
)

// Manager aggregates the Badger-backed storage services.
type Manager struct {
	db       *BadgerDB
	jobs     interfaces.JobStorage
	catalog  interfaces.CatalogStorage
	keyValue interfaces.KeyValueStorage
	logger   arbor.ILogger
}

// NewManager opens the database and wires up the storage services.
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (*Manager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize badger database: %w", err)
	}

	return &Manager{
		db:       db,
		jobs:     NewJobStorage(db, logger),
		catalog:  NewProductStorage(db, logger),
		keyValue: NewKVStorage(db, logger),
		logger:   logger,
	}, nil
}

func (m *Manager) JobStorage() interfaces.JobStorage {
	return m.jobs
}

func (m *Manager) CatalogStorage() interfaces.CatalogStorage {
	return m.catalog
}

func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.keyValue
}

// DB exposes the underlying connection for components that need raw
// Badger access, such as the queue manager.
func (m *Manager) DB() *BadgerDB {
	return m.db
}

func (m *Manager) Close() error {
	m.logger.Debug().Msg("Closing storage manager")
	return m.db.Close()
}

package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/quotienthq/quotient/internal/models"
)

var (
	// ErrKeyNotFound is returned when a settings key does not exist.
	ErrKeyNotFound = errors.New("key not found")
	// ErrJobNotFound is returned when a job ID is unknown.
	ErrJobNotFound = errors.New("job not found")
	// ErrProductNotFound is returned when a catalog product ID is unknown.
	ErrProductNotFound = errors.New("product not found")
)

// KeyValuePair is a stored setting.
type KeyValuePair struct {
	Key         string    `badgerhold:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// KeyValueStorage is the key-value settings store. Keys are
// case-insensitive.
type KeyValueStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value, description string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]KeyValuePair, error)
}

// JobListOptions filters and pages job listings.
type JobListOptions struct {
	Status    models.JobStatus
	Limit     int
	Offset    int
	OrderDesc bool
}

// JobStorage is the persisted-job store backing the queue's read model.
type JobStorage interface {
	SaveJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	ListJobs(ctx context.Context, opts *JobListOptions) ([]*models.Job, error)
	DeleteJob(ctx context.Context, jobID string) error
	CountByStatus(ctx context.Context, status models.JobStatus) (int, error)
}

// CatalogStorage is the product catalog repository. The matcher only reads
// it; creation is an explicit separate operation taken after review.
type CatalogStorage interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	GetProduct(ctx context.Context, productID string) (*models.Product, error)
	UpdateProduct(ctx context.Context, product *models.Product) error
	ListProducts(ctx context.Context, limit, offset int) ([]*models.Product, error)
	// ProductsMissingEmbedding returns catalog entries with no stored vector,
	// used by the backfill utility.
	ProductsMissingEmbedding(ctx context.Context, limit int) ([]*models.Product, error)
	// FindByEmbeddingNeighborhood returns the nearest catalog products by
	// vector similarity, ranked by score descending.
	FindByEmbeddingNeighborhood(ctx context.Context, embedding []float32, limit int) ([]models.ProductMatch, error)
}

// StorageManager aggregates the storage backends behind one lifecycle.
type StorageManager interface {
	JobStorage() JobStorage
	CatalogStorage() CatalogStorage
	KeyValueStorage() KeyValueStorage
	Close() error
}

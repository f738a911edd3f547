package pipeline

import "errors"

var (
	// ErrDocumentStoreRequired is returned when a document store is not provided.
	ErrDocumentStoreRequired = errors.New("document store required")

	// ErrRegistryRequired is returned when a provider registry is not provided.
	ErrRegistryRequired = errors.New("provider registry required")

	// ErrWatchIndexRequired is returned when the watch index name is empty.
	ErrWatchIndexRequired = errors.New("watch index required")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("batch size must be greater than 0")

	// ErrInvalidInterval is returned when the poll interval is not positive.
	ErrInvalidInterval = errors.New("poll interval must be greater than 0")

	// ErrInvalidPoolSize is returned when the pool size is less than 1.
	ErrInvalidPoolSize = errors.New("pool size must be at least 1")
)

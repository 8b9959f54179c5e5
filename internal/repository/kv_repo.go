package repository

import "context"

// KeyValueRepository is the storage port behind credentials and the project cache.
// Get returns ErrNotFound for a missing key; Delete of a missing key is not an error.
type KeyValueRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

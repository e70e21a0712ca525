package storage

import "context"

// Backend is a key-value persistence mechanism. Get reports found=false for a key
// that has never been written or has been deleted.
type Backend interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

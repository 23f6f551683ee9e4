package ports

import "context"

// BlobStore stores scan files and prediction artifacts under forward-slash keys.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

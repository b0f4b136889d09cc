package commonModels

import "context"

// BlobStore holds raw document bytes keyed by file name.
type BlobStore interface {
	Write(ctx context.Context, name string, content []byte) error
	Read(ctx context.Context, name string) ([]byte, error)
	Delete(ctx context.Context, name string) (bool, error)
	Stat(ctx context.Context, name string) (BlobInfo, bool, error)
	List(ctx context.Context) ([]BlobInfo, error)
}

// MetadataStore holds one MetadataSidecar per blob. Get never fails for a
// missing record; it returns the default sidecar instead.
type MetadataStore interface {
	Get(ctx context.Context, name string) (MetadataSidecar, error)
	Put(ctx context.Context, name string, meta MetadataSidecar) error
	Delete(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]MetadataEntry, error)
}

type MetadataEntry struct {
	Name string
	Meta MetadataSidecar
}

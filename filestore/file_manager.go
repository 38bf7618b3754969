package filestore

import (
	"io"
)

// FileManager reads touchpoint exports from a storage backend.
type FileManager interface {
	Get(dir, fileName string) (io.ReadCloser, error)
	GetObjectSize(dir, fileName string) (int64, error)
	GetBucketName() string
}

package gcstorage

import (
	"context"
	"io"
	"path"
	"strings"

	"journeys/filestore"

	"cloud.google.com/go/storage"
)

var _ filestore.FileManager = (*GCSDriver)(nil)

type GCSDriver struct {
	client     *storage.Client
	BucketName string
}

func New(bucketName string) (*GCSDriver, error) {
	ctx := context.Background()
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	d := &GCSDriver{
		BucketName: bucketName,
		client:     client,
	}
	return d, nil
}

// GetObjectName joins dir and fileName without a leading separator.
func GetObjectName(dir, fileName string) string {
	return strings.TrimLeft(path.Join(dir, fileName), "/")
}

func (gcsd *GCSDriver) Get(dir, fileName string) (io.ReadCloser, error) {
	ctx := context.Background()
	obj := gcsd.client.Bucket(gcsd.BucketName).Object(GetObjectName(dir, fileName))
	return obj.NewReader(ctx)
}

func (gcsd *GCSDriver) GetObjectSize(dir, fileName string) (int64, error) {
	ctx := context.Background()
	attrs, err := gcsd.client.Bucket(gcsd.BucketName).Object(GetObjectName(dir, fileName)).Attrs(ctx)
	if err != nil {
		return 0, err
	}
	return attrs.Size, nil
}

func (gcsd *GCSDriver) GetBucketName() string {
	return gcsd.BucketName
}

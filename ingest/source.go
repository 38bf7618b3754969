package ingest

import (
	"context"
	"fmt"

	C "journeys/config"
	"journeys/filestore"
	M "journeys/model"
	"journeys/services/disk"
	"journeys/services/gcstorage"
	"journeys/services/s3"
)

// NewRecordReaderFromConfig builds the reader for the configured source type.
func NewRecordReaderFromConfig(ctx context.Context, config *C.Configuration) (RecordReader, error) {
	var fileManager filestore.FileManager
	switch config.SourceType {
	case C.SourceTypeDisk:
		fileManager = disk.New("")
	case C.SourceTypeS3:
		s3Driver, err := s3.New(config.SourceBucket, config.AWSRegion)
		if err != nil {
			return nil, err
		}
		fileManager = s3Driver
	case C.SourceTypeGCS:
		gcsDriver, err := gcstorage.New(config.SourceBucket)
		if err != nil {
			return nil, err
		}
		fileManager = gcsDriver
	case C.SourceTypePostgres:
		return NewPostgresReader(config.DBInfo)
	case C.SourceTypeBigQuery:
		return NewBigQueryReader(ctx, config.BigQuery)
	default:
		return nil, fmt.Errorf("invalid source type %q", config.SourceType)
	}

	return NewFileReader(fileManager, config.SourcePath, config.SourceFile, config.SheetName), nil
}

// NewSourceFromConfig builds a Loader with the configured record policy and
// timezone. Failing to reach the source is an IngestionFailure.
func NewSourceFromConfig(ctx context.Context, config *C.Configuration) (Source, error) {
	reader, err := NewRecordReaderFromConfig(ctx, config)
	if err != nil {
		return nil, M.NewIngestionFailure(config.SourceType, err)
	}
	return NewLoader(reader, config.RecordPolicy, C.GetTimeLocation()), nil
}

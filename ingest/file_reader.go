package ingest

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"journeys/filestore"

	log "github.com/sirupsen/logrus"
)

// FileReader reads a spreadsheet or csv export through a FileManager.
// The format is chosen by file extension.
type FileReader struct {
	fileManager filestore.FileManager
	dir         string
	fileName    string
	sheetName   string
}

var _ RecordReader = (*FileReader)(nil)

func NewFileReader(fileManager filestore.FileManager, dir, fileName, sheetName string) *FileReader {
	return &FileReader{fileManager: fileManager, dir: dir, fileName: fileName, sheetName: sheetName}
}

func (r *FileReader) Name() string {
	bucket := r.fileManager.GetBucketName()
	if bucket == "" {
		return path.Join(r.dir, r.fileName)
	}
	return bucket + ":" + path.Join(r.dir, r.fileName)
}

func (r *FileReader) ReadRecords(ctx context.Context) ([]RawTouchpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logCtx := log.WithField("file", r.Name())
	if size, err := r.fileManager.GetObjectSize(r.dir, r.fileName); err == nil {
		logCtx = logCtx.WithField("size", size)
	}
	logCtx.Info("Reading touchpoint file.")

	file, err := r.fileManager.Get(r.dir, r.fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %v", r.Name(), err)
	}
	defer file.Close()

	var rows [][]string
	switch strings.ToLower(filepath.Ext(r.fileName)) {
	case ".xlsx", ".xlsm":
		rows, err = ReadXLSXRows(file, r.sheetName)
	case ".csv":
		rows, err = ReadCSVRows(file)
	default:
		return nil, fmt.Errorf("unsupported file type %s", r.fileName)
	}
	if err != nil {
		return nil, err
	}

	return RawTouchpointsFromRows(rows)
}

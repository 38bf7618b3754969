package disk

import (
	"io"
	"os"
	"path/filepath"

	"journeys/filestore"

	log "github.com/sirupsen/logrus"
)

var _ filestore.FileManager = (*DiskDriver)(nil)

type DiskDriver struct {
	// Relative dirs are resolved against baseDir. Analogus to bucket name.
	baseDir string
}

func New(baseDir string) *DiskDriver {
	return &DiskDriver{baseDir: baseDir}
}

func (dd *DiskDriver) resolve(dir, fileName string) string {
	if filepath.IsAbs(dir) || dd.baseDir == "" {
		return filepath.Join(dir, fileName)
	}
	return filepath.Join(dd.baseDir, dir, fileName)
}

// Get opens a file in read only mode.
// Caller should take care of closing the returned io.ReadCloser.
func (dd *DiskDriver) Get(dir, fileName string) (io.ReadCloser, error) {
	path := dd.resolve(dir, fileName)
	log.WithField("path", path).Debug("DiskDriver opening file.")

	return os.OpenFile(path, os.O_RDONLY, 0444)
}

func (dd *DiskDriver) GetObjectSize(dir, fileName string) (int64, error) {
	objInfo, err := os.Stat(dd.resolve(dir, fileName))
	if err != nil {
		return 0, err
	}
	return objInfo.Size(), nil
}

func (dd *DiskDriver) GetBucketName() string {
	return dd.baseDir
}

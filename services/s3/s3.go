package s3

import (
	"io"
	"path"

	"journeys/filestore"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

var _ filestore.FileManager = (*S3Driver)(nil)

type S3Driver struct {
	s3         s3iface.S3API
	BucketName string
	Region     string
}

func New(bucketName, region string) (*S3Driver, error) {
	sess, err := session.NewSession(aws.NewConfig().WithRegion(region))
	if err != nil {
		return nil, err
	}
	return NewWithClient(s3.New(sess), bucketName, region), nil
}

func NewWithClient(client s3iface.S3API, bucketName, region string) *S3Driver {
	return &S3Driver{s3: client, BucketName: bucketName, Region: region}
}

// GetObjectKey joins dir and fileName without a leading separator.
func GetObjectKey(dir, fileName string) string {
	key := path.Join(dir, fileName)
	for len(key) > 0 && key[0] == '/' {
		key = key[1:]
	}
	return key
}

func (sd *S3Driver) Get(dir, fileName string) (io.ReadCloser, error) {
	input := s3.GetObjectInput{
		Bucket: aws.String(sd.BucketName),
		Key:    aws.String(GetObjectKey(dir, fileName)),
	}
	op, err := sd.s3.GetObject(&input)
	if err != nil {
		return nil, err
	}
	return op.Body, nil
}

func (sd *S3Driver) GetObjectSize(dir, fileName string) (int64, error) {
	input := s3.HeadObjectInput{
		Bucket: aws.String(sd.BucketName),
		Key:    aws.String(GetObjectKey(dir, fileName)),
	}
	op, err := sd.s3.HeadObject(&input)
	if err != nil {
		return 0, err
	}
	return aws.Int64Value(op.ContentLength), nil
}

func (sd *S3Driver) GetBucketName() string {
	return sd.BucketName
}

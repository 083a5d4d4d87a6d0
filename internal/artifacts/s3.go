package artifacts

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/sonar-sync/internal/config"
)

// S3Uploader copies artifacts to a bucket.
type S3Uploader struct {
	uploader s3manageriface.UploaderAPI
	bucket   string
	prefix   string
	logger   hclog.Logger
}

// NewS3Uploader returns an uploader for the s3 section of the configuration,
// or nil when no bucket is configured. Credentials come from the usual AWS
// environment and shared config files.
func NewS3Uploader(cfg *config.Config, logger hclog.Logger) (*S3Uploader, error) {
	if cfg == nil || cfg.S3.Bucket == "" {
		return nil, nil
	}

	awsConfig := &aws.Config{}
	if cfg.S3.Region != "" {
		awsConfig.Region = aws.String(cfg.S3.Region)
	}
	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return newS3Uploader(s3manager.NewUploader(sess), cfg.S3.Bucket, cfg.S3.Prefix, logger), nil
}

func newS3Uploader(api s3manageriface.UploaderAPI, bucket, prefix string, logger hclog.Logger) *S3Uploader {
	return &S3Uploader{uploader: api, bucket: bucket, prefix: prefix, logger: logger}
}

// Upload sends the file at localPath and returns its location.
func (u *S3Uploader) Upload(localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open artifact %q: %w", localPath, err)
	}
	defer f.Close()

	key := path.Join(u.prefix, filepath.Base(localPath))
	u.logger.Info("uploading artifact", "bucket", u.bucket, "key", key)

	result, err := u.uploader.Upload(&s3manager.UploadInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %q to bucket %s: %w", localPath, u.bucket, err)
	}

	u.logger.Info("uploaded artifact", "bucket", u.bucket, "key", key, "location", result.Location)
	return result.Location, nil
}

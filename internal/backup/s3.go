package backup

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// S3Store backs rules up to an S3 bucket, keyed per subreddit.
type S3Store struct {
	bucket   string
	prefix   string
	uploader *s3manager.Uploader
	svc      *s3.S3
}

func NewS3Store(bucket, prefix, region string) (*S3Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket name is required")
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("creating aws session: %w", err)
	}

	return &S3Store{
		bucket:   bucket,
		prefix:   prefix,
		uploader: s3manager.NewUploader(sess),
		svc:      s3.New(sess),
	}, nil
}

func (s *S3Store) key(subreddit string) string {
	key := subreddit + "/automodmailrules.yaml"
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

func (s *S3Store) Save(ctx context.Context, subreddit, rulesText, _ string) error {
	key := s.key(subreddit)

	if existing, err := s.download(ctx, key); err == nil &&
		strings.TrimSpace(string(existing)) == strings.TrimSpace(rulesText) {
		return nil
	}

	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader([]byte(rulesText)),
	})
	if err != nil {
		return fmt.Errorf("uploading to s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

func (s *S3Store) download(ctx context.Context, key string) ([]byte, error) {
	buff := &aws.WriteAtBuffer{}
	downloader := s3manager.NewDownloaderWithClient(s.svc)
	_, err := downloader.DownloadWithContext(ctx, buff, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	return buff.Bytes(), nil
}

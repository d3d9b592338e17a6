// Package storage keeps attendance export files in S3 or an S3-compatible store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

const (
	exportPrefix     = "exports"
	csvContentType   = "text/csv; charset=utf-8"
	defaultPresignTT = 15 * time.Minute
)

// S3Config configures the exports bucket client. Endpoint is only set for
// S3-compatible stores and switches to path-style addressing.
type S3Config struct {
	Region               string
	Endpoint             string
	AccessKeyID          string
	SecretAccessKey      string
	ExportsBucket        string
	PresignExpireMinutes int
}

// S3 stores and signs export objects.
type S3 struct {
	client   *s3.Client
	uploader *manager.Uploader
	signer   *s3.PresignClient
	bucket   string
	ttl      time.Duration
	logger   *zap.Logger
}

// NewS3 builds the client. Static keys are used when both are set, the
// default AWS credential chain otherwise.
func NewS3(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ExportsBucket == "" {
		return nil, errors.New("exports bucket not configured")
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	static := cfg.AccessKeyID != "" && cfg.SecretAccessKey != ""
	if static {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	ttl := defaultPresignTT
	if cfg.PresignExpireMinutes > 0 {
		ttl = time.Duration(cfg.PresignExpireMinutes) * time.Minute
	}

	logger.Info("export storage ready",
		zap.String("bucket", cfg.ExportsBucket),
		zap.String("region", cfg.Region),
		zap.String("endpoint", cfg.Endpoint),
		zap.Bool("static_credentials", static),
	)
	return &S3{
		client:   client,
		uploader: manager.NewUploader(client),
		signer:   s3.NewPresignClient(client),
		bucket:   cfg.ExportsBucket,
		ttl:      ttl,
		logger:   logger,
	}, nil
}

// ExportKey is the object key of one export: exports/{workshop}/{export}.csv.
func ExportKey(workshopID, exportID string) string {
	return path.Join(exportPrefix, workshopID, exportID+".csv")
}

// PresignTTL is how long download links stay valid.
func (s *S3) PresignTTL() time.Duration { return s.ttl }

// UploadExport stores a rendered CSV under key.
func (s *S3) UploadExport(ctx context.Context, key string, body io.Reader) error {
	if _, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(csvContentType),
	}); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// PresignExportDownload returns a time-limited GET URL that downloads the
// export as an attachment.
func (s *S3) PresignExportDownload(ctx context.Context, key string) (string, error) {
	req, err := s.signer.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(s.bucket),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String(fmt.Sprintf("attachment; filename=%q", "attendance-"+path.Base(key))),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}

// DeleteExport removes an export object. Missing objects are not an error.
func (s *S3) DeleteExport(ctx context.Context, key string) error {
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

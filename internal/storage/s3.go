// Package storage uploads background images to an S3-compatible
// bucket and hands back the public URL stored on the record.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/darkodi/countdown-qr/internal/config"
)

// MaxImageSize is the upload cap for background images.
const MaxImageSize = 5 << 20 // 5 MiB

var (
	ErrTooLarge        = errors.New("image exceeds the 5MB limit")
	ErrUnsupportedType = errors.New("unsupported image type")
)

var extByContentType = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

type S3Storage struct {
	client        *s3.Client
	bucket        string
	publicBaseURL string
}

func NewS3Storage(ctx context.Context, cfg *config.StorageConfig) (*S3Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			// MinIO/LocalStack style setups need path addressing.
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	base := cfg.PublicBaseURL
	if base == "" {
		if cfg.Endpoint != "" {
			base = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
		} else {
			base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}

	return &S3Storage{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: base,
	}, nil
}

// UploadBackground validates and stores one image, returning its
// public URL. size is the declared length from the multipart part; the
// reader is additionally capped so a lying client cannot exceed the
// limit.
func (s *S3Storage) UploadBackground(ctx context.Context, filename, contentType string, size int64, body io.Reader) (string, error) {
	if size > MaxImageSize {
		return "", ErrTooLarge
	}
	ext, ok := extByContentType[contentType]
	if !ok {
		// Fall back to the filename extension for clients that send a
		// generic content type.
		ext = strings.TrimPrefix(strings.ToLower(path.Ext(filename)), ".")
		if ext != "png" && ext != "jpg" && ext != "jpeg" && ext != "gif" && ext != "webp" {
			return "", ErrUnsupportedType
		}
	}

	key := fmt.Sprintf("backgrounds/%d_%s.%s",
		time.Now().UnixMilli(), randomToken(8), ext)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        io.LimitReader(body, MaxImageSize),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}

	return s.publicBaseURL + "/" + key, nil
}

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomToken(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = tokenAlphabet[rand.IntN(len(tokenAlphabet))]
	}
	return string(b)
}

package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"realtyhub/backend/internal/config"
)

// ErrObjectNotFound is returned when a key does not exist in the bucket.
var ErrObjectNotFound = errors.New("object not found")

// ErrUnsupportedContentType is returned for uploads that are not images we accept.
var ErrUnsupportedContentType = errors.New("unsupported content type")

// AllowedImageTypes lists the content types accepted for property photos.
var AllowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

const presignExpiry = 15 * time.Minute

// IS3Storage is the object storage used for property photos.
type IS3Storage interface {
	GeneratePresignedPutURL(ctx context.Context, ownerID, propertyID, filename, contentType string) (url string, key string, err error)
	GetObject(ctx context.Context, key string) (data []byte, contentType string, err error)
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
}

type s3Storage struct {
	bucket        string
	s3Client      *s3.Client
	presignClient *s3.PresignClient
}

// NewS3Client builds an S3 client from the static credentials in cfg.
func NewS3Client(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	awsCfg, err := aws_config.LoadDefaultConfig(ctx,
		aws_config.WithRegion(cfg.AwsRegion),
		aws_config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AwsAccessKeyID,
			cfg.AwsSecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg), nil
}

// NewS3Storage wraps client for the configured bucket.
func NewS3Storage(cfg *config.Config, client *s3.Client) IS3Storage {
	return &s3Storage{
		bucket:        cfg.AwsS3Bucket,
		s3Client:      client,
		presignClient: s3.NewPresignClient(client),
	}
}

// PropertyKeyPrefix is the key prefix under which a property's photos live.
func PropertyKeyPrefix(ownerID, propertyID string) string {
	return fmt.Sprintf("properties/%s/%s/", ownerID, propertyID)
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// ObjectKey builds a unique key for an uploaded file. The client filename is
// reduced to a safe base name and the extension follows the content type.
func ObjectKey(ownerID, propertyID, filename, contentType string) (string, error) {
	ext, ok := AllowedImageTypes[strings.ToLower(contentType)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedContentType, contentType)
	}
	base := strings.TrimSuffix(path.Base(strings.ReplaceAll(filename, "\\", "/")), path.Ext(filename))
	base = strings.Trim(unsafeChars.ReplaceAllString(base, "-"), "-.")
	if len(base) > 40 {
		base = base[:40]
	}
	if base == "" {
		base = "photo"
	}
	return PropertyKeyPrefix(ownerID, propertyID) + uuid.NewString() + "_" + base + ext, nil
}

func (s *s3Storage) GeneratePresignedPutURL(ctx context.Context, ownerID, propertyID, filename, contentType string) (string, string, error) {
	key, err := ObjectKey(ownerID, propertyID, filename, contentType)
	if err != nil {
		return "", "", err
	}
	req, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", "", fmt.Errorf("failed to generate presigned PUT URL for key %s: %w", key, err)
	}
	log.Debug().Str("key", key).Msg("generated presigned upload URL")
	return req.URL, key, nil
}

func (s *s3Storage) GetObject(ctx context.Context, key string) ([]byte, string, error) {
	out, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, "", fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, "", fmt.Errorf("failed to download %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, aws.ToString(out.ContentType), nil
}

func (s *s3Storage) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// Package imagehost stores avatar images on S3-compatible object storage
// (AWS S3, MinIO) and removes them again.
package imagehost

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/google/uuid"
)

// KeyPrefix is the folder all avatar objects live under.
const KeyPrefix = "avatars"

var ErrUnsupportedFormat = errors.New("unsupported image format")

// allowedTypes maps sniffed content types to the stored extension.
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
	deleteObject = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
		return c.DeleteObject(ctx, in, optFns...)
	}
)

type Config struct {
	Region       string
	AccessKey    string
	SecretKey    string
	Bucket       string
	BaseEndpoint string
	// PublicURL is the base of the links handed to clients; BaseEndpoint
	// is used when it is empty.
	PublicURL string
}

// UploadResult identifies a stored image: URL for clients, PublicID for
// later deletion.
type UploadResult struct {
	URL      string
	PublicID string
}

type S3Host struct {
	cfg    Config
	client *s3.Client
	logger logging.Logger
	now    func() time.Time
}

func NewS3Host(ctx context.Context, cfg Config, logger logging.Logger) (*S3Host, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("s3 config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
		}
		o.UsePathStyle = true
	})

	return &S3Host{cfg: cfg, client: client, logger: logger, now: time.Now}, nil
}

// storageKey returns avatars/<yyyy>/<m>/<d>/<uuid><ext>.
func storageKey(d time.Time, ext string) string {
	return fmt.Sprintf("%s/%d/%d/%d/%v%s", KeyPrefix, d.Year(), d.Month(), d.Day(), uuid.New(), ext)
}

func (h *S3Host) publicURL(key string) string {
	base := h.cfg.PublicURL
	if base == "" {
		base = h.cfg.BaseEndpoint
	}
	return strings.TrimRight(base, "/") + "/" + h.cfg.Bucket + "/" + key
}

// sniff reads the head of f to detect the image type and rewinds it.
func sniff(f *os.File) (contentType, ext string, err error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", "", err
	}
	contentType = http.DetectContentType(head[:n])
	ext, ok := allowedTypes[contentType]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, contentType)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", "", err
	}
	return contentType, ext, nil
}

// Upload stores the file at localPath and returns its public URL and key.
// The local file is removed whether or not the upload succeeds.
func (h *S3Host) Upload(ctx context.Context, localPath string) (*UploadResult, error) {
	defer func() {
		if err := os.Remove(localPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			h.logger.Warn(ctx, "staged upload not removed", "path", localPath, "error", err)
		}
	}()

	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	contentType, ext, err := sniff(f)
	if err != nil {
		return nil, err
	}

	key := storageKey(h.now(), ext)
	_, err = putObject(h.client, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(h.cfg.Bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 put: %w", err)
	}

	return &UploadResult{URL: h.publicURL(key), PublicID: key}, nil
}

// Delete removes the object with the given key and reports success.
func (h *S3Host) Delete(ctx context.Context, publicID string) bool {
	if publicID == "" {
		return false
	}

	_, err := deleteObject(h.client, ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(h.cfg.Bucket),
		Key:    aws.String(publicID),
	})
	if err != nil {
		h.logger.Warn(ctx, "avatar delete failed", "key", publicID, "error", err)
		return false
	}
	return true
}

package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"path/filepath"
	"strings"
	"time"

	"crm-contacts/config"
	"crm-contacts/internal/cache"
	"crm-contacts/internal/utils"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"
)

var ErrUnsupportedMedia = errors.New("unsupported media type")

const fileURLCachePrefix = "fileurl:"

// S3Service stores profile images and signs time-limited GET URLs for them.
// Signed URLs are cached for less than their validity window.
type S3Service struct {
	s3Client s3iface.S3API
	config   *config.S3Config
	urls     cache.Store
	urlTTL   time.Duration
}

func NewS3Service(cfg *config.S3Config, urls cache.Store, urlTTL time.Duration) (*S3Service, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg := &aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""),
	}
	if cfg.ServiceUrl != "" {
		awsCfg.Endpoint = aws.String(cfg.ServiceUrl)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create s3 session: %w", err)
	}
	return NewS3ServiceWithClient(s3.New(sess), cfg, urls, urlTTL), nil
}

func NewS3ServiceWithClient(client s3iface.S3API, cfg *config.S3Config, urls cache.Store, urlTTL time.Duration) *S3Service {
	return &S3Service{
		s3Client: client,
		config:   cfg,
		urls:     urls,
		urlTTL:   urlTTL,
	}
}

// TenantPrefix is the key prefix every object of a tenant lives under.
func TenantPrefix(tenantID string) string {
	return path.Join("tenants", tenantID) + "/"
}

// UploadFile stores an uploaded profile image and returns its storage path.
func (s *S3Service) UploadFile(ctx context.Context, tenantID string, file multipart.File, fileHeader *multipart.FileHeader) (string, error) {
	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if !utils.IsImageMime(contentType) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedMedia, contentType)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if ext == "" {
		ext = "." + utils.GetExtensionFromMime(contentType)
	}
	key := TenantPrefix(tenantID) + "avatars/" + uuid.NewString() + ext

	utils.LogInfo("Uploading %s (%d bytes)", key, len(data))
	if err := s.UploadBytes(ctx, data, key, contentType); err != nil {
		return "", err
	}
	return key, nil
}

func (s *S3Service) UploadBytes(ctx context.Context, data []byte, key string, contentType string) error {
	params := &s3.PutObjectInput{
		Bucket:      aws.String(s.config.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}
	if _, err := s.s3Client.PutObjectWithContext(ctx, params); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// GetFileURL returns a presigned GET URL for filePath. Direct URLs are
// returned unchanged.
func (s *S3Service) GetFileURL(ctx context.Context, filePath string) (string, error) {
	if utils.IsURL(filePath) {
		return filePath, nil
	}
	key := strings.TrimPrefix(filePath, "/")
	if key == "" {
		return "", fmt.Errorf("empty file path")
	}

	cacheKey := fileURLCachePrefix + key
	if s.urls != nil {
		if cached, err := s.urls.Get(ctx, cacheKey); err == nil {
			return cached, nil
		} else if !errors.Is(err, cache.ErrMiss) {
			utils.LogWarning("file url cache read failed: %v", err)
		}
	}

	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.config.BucketName),
		Key:    aws.String(key),
	})
	signed, err := req.Presign(s.config.URLExpiry)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}

	if s.urls != nil && s.urlTTL > 0 {
		if err := s.urls.Set(ctx, cacheKey, signed, s.urlTTL); err != nil {
			utils.LogWarning("file url cache write failed: %v", err)
		}
	}
	return signed, nil
}

func (s *S3Service) DeleteFile(ctx context.Context, filePath string) error {
	key := strings.TrimPrefix(filePath, "/")
	if _, err := s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.config.BucketName),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	if s.urls != nil {
		_ = s.urls.Delete(ctx, fileURLCachePrefix+key)
	}
	return nil
}

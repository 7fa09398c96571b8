// Package media загружает пользовательские изображения в S3-совместимое хранилище.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/account-service/internal/config"
	"github.com/magabrotheeeer/account-service/internal/lib/metrics"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
)

// ErrNoFile возвращается, когда путь к локальному файлу не передан.
var ErrNoFile = errors.New("no local file to upload")

// ObjectAPI — часть клиента S3, нужная загрузчику.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// UploadResult описывает загруженный объект.
type UploadResult struct {
	URL string
	Key string
}

// S3Uploader кладёт файлы в бакет и отдаёт их публичный URL.
type S3Uploader struct {
	client  ObjectAPI
	bucket  string
	prefix  string
	baseURL string
	log     *slog.Logger
	now     func() time.Time
}

// NewS3Uploader создаёт клиента S3 по настройкам из конфига.
func NewS3Uploader(ctx context.Context, cfg config.S3, log *slog.Logger) (*S3Uploader, error) {
	const op = "media.NewS3Uploader"

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})

	return NewWithClient(client, cfg.Bucket, cfg.KeyPrefix, publicBaseURL(cfg), log), nil
}

// NewWithClient собирает загрузчик поверх готового клиента.
func NewWithClient(client ObjectAPI, bucket, prefix, baseURL string, log *slog.Logger) *S3Uploader {
	return &S3Uploader{
		client:  client,
		bucket:  bucket,
		prefix:  strings.Trim(prefix, "/"),
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
		now:     time.Now,
	}
}

func publicBaseURL(cfg config.S3) string {
	switch {
	case cfg.PublicBaseURL != "":
		return cfg.PublicBaseURL
	case cfg.Endpoint != "":
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
}

// Upload загружает локальный файл и удаляет его в любом случае.
func (u *S3Uploader) Upload(ctx context.Context, localPath string) (res *UploadResult, err error) {
	const op = "media.Upload"
	log := u.log.With(sl.Op(op), slog.String("path", localPath))

	if localPath == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrNoFile)
	}
	defer func() {
		if rmErr := os.Remove(localPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			log.Warn("failed to remove temp file", sl.Err(rmErr))
		}
		metrics.ObserveUpload(err)
	}()

	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	contentType, err := detectContentType(f, localPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	key := u.objectKey(localPath)
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		log.Error("failed to upload object", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Debug("object uploaded", slog.String("key", key))
	return &UploadResult{URL: u.baseURL + "/" + key, Key: key}, nil
}

// Delete удаляет ранее загруженный объект по ключу.
func (u *S3Uploader) Delete(ctx context.Context, key string) error {
	const op = "media.Delete"
	if key == "" {
		return nil
	}
	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// objectKey строит ключ вида prefix/yyyy/mm/<uuid><ext>.
func (u *S3Uploader) objectKey(localPath string) string {
	now := u.now().UTC()
	name := uuid.NewString() + strings.ToLower(filepath.Ext(localPath))
	key := fmt.Sprintf("%04d/%02d/%s", now.Year(), int(now.Month()), name)
	if u.prefix != "" {
		key = u.prefix + "/" + key
	}
	return key
}

func detectContentType(f *os.File, path string) (string, error) {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); ct != "" {
		return ct, nil
	}
	head := make([]byte, 512)
	n, err := f.Read(head)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	if _, err = f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}

// Package media uploads listing and avatar images to an S3-compatible
// bucket and returns the URL the backend should store.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// MaxImageSize bounds uploads read from disk.
const MaxImageSize = 10 << 20

var (
	ErrNotImage = errors.New("file is not an image")
	ErrTooLarge = errors.New("image too large")
)

// Uploader turns a local image path or remote URL into a URL usable by the
// backend.
type Uploader interface {
	Upload(ctx context.Context, source string) (string, error)
}

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	// PublicURL is the base objects are served from. Endpoint is used
	// when empty.
	PublicURL string
	Prefix    string
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Uploader struct {
	client objectPutter
	cfg    S3Config
	newKey func(ext string) string
}

// NewS3Uploader builds a client with static credentials and path-style
// addressing so MinIO works without DNS tricks.
func NewS3Uploader(ctx context.Context, c S3Config) (*S3Uploader, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
		}
		o.UsePathStyle = true
	})
	return newS3Uploader(client, c), nil
}

func newS3Uploader(client objectPutter, c S3Config) *S3Uploader {
	if c.PublicURL == "" {
		c.PublicURL = c.Endpoint
	}
	prefix := c.Prefix
	return &S3Uploader{
		client: client,
		cfg:    c,
		newKey: func(ext string) string {
			return path.Join(prefix, uuid.NewString()+ext)
		},
	}
}

// Upload returns http(s) sources unchanged and "" for an empty source.
// Anything else is read as a local file and stored under a random key.
func (u *S3Uploader) Upload(ctx context.Context, source string) (string, error) {
	source = strings.TrimSpace(source)
	if source == "" || IsRemote(source) {
		return source, nil
	}

	data, err := readImage(source)
	if err != nil {
		return "", err
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("%s: %w (%s)", source, ErrNotImage, contentType)
	}

	key := u.newKey(strings.ToLower(filepath.Ext(source)))
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return strings.TrimRight(u.cfg.PublicURL, "/") + "/" + u.cfg.Bucket + "/" + key, nil
}

func readImage(p string) ([]byte, error) {
	fi, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("stat image: %w", err)
	}
	if fi.Size() > MaxImageSize {
		return nil, fmt.Errorf("%s: %w", p, ErrTooLarge)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return data, nil
}

// IsRemote reports whether s is an http or https URL.
func IsRemote(s string) bool {
	l := strings.ToLower(s)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// Passthrough accepts only remote URLs. Used when no bucket is configured.
type Passthrough struct{}

var ErrNoStorage = errors.New("no image storage configured, use an http(s) url")

func (Passthrough) Upload(_ context.Context, source string) (string, error) {
	source = strings.TrimSpace(source)
	if source == "" || IsRemote(source) {
		return source, nil
	}
	return "", ErrNoStorage
}

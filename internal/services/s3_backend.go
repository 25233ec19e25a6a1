package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/damacus/wedding-album/internal/models"
)

// S3API is the subset of the AWS S3 client we use
type S3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Presigner signs GET requests
type S3Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (string, error)
}

type presignClient struct {
	client *s3.PresignClient
}

func (p presignClient) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (string, error) {
	req, err := p.client.PresignGetObject(ctx, params, optFns...)
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// S3Options configures NewS3Backend
type S3Options struct {
	Region        string
	Endpoint      string // empty for AWS
	AccessKey     string
	SecretKey     string
	Bucket        string
	Public        bool
	PublicBaseURL string
}

// S3Backend serves the album from an AWS S3 bucket
type S3Backend struct {
	api       S3API
	presigner S3Presigner
	bucket    string
	publicURL string // empty when the bucket is private
}

// NewS3Backend builds the AWS client from the default credential chain,
// overridden by static keys when given
func NewS3Backend(ctx context.Context, opts S3Options) (*S3Backend, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	base := ""
	if opts.Public {
		base = defaultPublicBase(opts)
	}
	return newS3Backend(client, presignClient{client: s3.NewPresignClient(client)}, opts.Bucket, base), nil
}

// defaultPublicBase is the configured base URL, else the path-style URL of a
// custom endpoint, else the AWS virtual-hosted URL
func defaultPublicBase(opts S3Options) string {
	switch {
	case opts.PublicBaseURL != "":
		return opts.PublicBaseURL
	case opts.Endpoint != "":
		return strings.TrimSuffix(opts.Endpoint, "/") + "/" + opts.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", opts.Bucket, opts.Region)
}

func newS3Backend(api S3API, presigner S3Presigner, bucket, publicBase string) *S3Backend {
	return &S3Backend{
		api:       api,
		presigner: presigner,
		bucket:    bucket,
		publicURL: strings.TrimSuffix(publicBase, "/"),
	}
}

func (b *S3Backend) Bucket() string {
	return b.bucket
}

// List pages through the whole folder level with continuation tokens, since
// S3 returns keys in lexical order and uploads are named oldest first, then
// orders and limits it.
func (b *S3Backend) List(ctx context.Context, folder string, opts ListOptions) ([]models.StorageEntry, error) {
	prefix := ""
	if folder != "" {
		prefix = strings.TrimSuffix(folder, "/") + "/"
	}

	var entries, folders []models.StorageEntry
	var token *string
	for {
		out, err := b.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(b.bucket),
			Prefix:            aws.String(prefix),
			Delimiter:         aws.String("/"),
			MaxKeys:           aws.Int32(scanPageSize),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("list %q: %w", prefix, err)
		}

		for _, obj := range out.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if name == "" || strings.HasSuffix(name, "/") {
				continue
			}
			entry := models.StorageEntry{
				Name:      name,
				CreatedAt: aws.ToTime(obj.LastModified),
			}
			if obj.Size != nil {
				size := *obj.Size
				entry.Size = &size
			}
			entries = append(entries, entry)
		}
		for _, cp := range out.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/")
			if name != "" {
				folders = append(folders, models.StorageEntry{Name: name, IsFolder: true})
			}
		}

		next := aws.ToString(out.NextContinuationToken)
		if !aws.ToBool(out.IsTruncated) || next == "" || next == aws.ToString(token) {
			break
		}
		token = aws.String(next)
	}

	entries, truncated := limitEntries(append(entries, folders...), opts)
	if truncated {
		slog.Debug("folder listing truncated", "bucket", b.bucket, "prefix", prefix, "limit", opts.Limit)
	}
	return entries, nil
}

func (b *S3Backend) PublicURL(path string) string {
	if b.publicURL == "" {
		return NoPublicURL
	}
	return b.publicURL + "/" + escapeKey(path)
}

func (b *S3Backend) SignedURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	return b.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(path),
	}, s3.WithPresignExpires(expiry))
}

func (b *S3Backend) Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(path),
		Body:        r,
		ContentType: aws.String(contentType),
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}
	_, err := b.api.PutObject(ctx, input)
	return err
}

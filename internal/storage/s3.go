package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/dw-outreach/outreach/backend/internal/util"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// SnapshotPrefix is the key prefix rendered snapshots are stored under.
const SnapshotPrefix = "snapshots"

// DownloadLinkTTL is how long a presigned download link stays valid.
const DownloadLinkTTL = 15 * time.Minute

// Params configures an ObjectStore. NewParamsFromEnv reads the AWS_*
// variables.
type Params struct {
	Region         string
	Endpoint       string
	PublicEndpoint string
	AccessKey      string
	SecretKey      string
	Bucket         string
}

func NewParamsFromEnv() Params {
	return Params{
		Region:         util.GetEnv("AWS_REGION"),
		Endpoint:       util.GetEnv("AWS_ENDPOINT"),
		PublicEndpoint: util.GetEnv("AWS_PUBLIC_ENDPOINT"),
		AccessKey:      util.GetEnv("AWS_ACCESS_KEY"),
		SecretKey:      util.GetEnv("AWS_SECRET_KEY"),
		Bucket:         util.GetEnv("AWS_BUCKET"),
	}
}

// ObjectStore keeps rendered snapshots in an S3 compatible bucket.
type ObjectStore struct {
	client         *s3.Client
	bucket         string
	publicEndpoint string
}

func NewS3Client(ctx context.Context, params Params) (*ObjectStore, error) {
	if params.Bucket == "" {
		return nil, fmt.Errorf("no bucket configured")
	}
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(params.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			params.AccessKey,
			params.SecretKey,
			"",
		)),
	}
	if params.Endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(params.Endpoint))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return &ObjectStore{
		client:         client,
		bucket:         params.Bucket,
		publicEndpoint: params.PublicEndpoint,
	}, nil
}

// SnapshotKey is the object key of snapshot id.
func SnapshotKey(id string) string {
	return path.Join(SnapshotPrefix, id+".svg")
}

// PutSnapshot uploads a rendered SVG and returns its key.
func (o *ObjectStore) PutSnapshot(ctx context.Context, id string, svg []byte) (string, error) {
	key := SnapshotKey(id)
	_, err := o.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(o.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(svg),
		ContentType: aws.String("image/svg+xml"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file to S3: %w", err)
	}
	return key, nil
}

func (o *ObjectStore) DeleteObject(ctx context.Context, key string) error {
	_, err := o.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file from S3: %w", err)
	}
	return nil
}

// GenerateDownloadLink presigns a GET for key. When a public endpoint is
// configured the link is signed for that host, so browsers outside the
// storage network can follow it.
func (o *ObjectStore) GenerateDownloadLink(ctx context.Context, key string) (string, error) {
	client := o.client
	prefix := ""
	if o.publicEndpoint != "" {
		publicURL, err := url.Parse(o.publicEndpoint)
		if err != nil || publicURL.Scheme == "" || publicURL.Host == "" {
			return "", fmt.Errorf("invalid AWS_PUBLIC_ENDPOINT: %s", o.publicEndpoint)
		}
		prefix = strings.TrimSuffix(publicURL.Path, "/")
		publicBaseEndpoint := fmt.Sprintf("%s://%s", publicURL.Scheme, publicURL.Host)
		client = s3.NewFromConfig(
			aws.Config{
				Region:      o.client.Options().Region,
				Credentials: o.client.Options().Credentials,
				HTTPClient:  o.client.Options().HTTPClient,
			},
			func(opts *s3.Options) {
				opts.BaseEndpoint = aws.String(publicBaseEndpoint)
				opts.UsePathStyle = true
			},
		)
	}

	out, err := s3.NewPresignClient(client).PresignGetObject(
		ctx,
		&s3.GetObjectInput{
			Bucket: aws.String(o.bucket),
			Key:    aws.String(key),
		},
		s3.WithPresignExpires(DownloadLinkTTL),
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate download link: %w", err)
	}
	if prefix == "" {
		return out.URL, nil
	}

	signedURL, err := url.Parse(out.URL)
	if err != nil {
		return "", fmt.Errorf("failed to parse presigned url: %w", err)
	}
	signedURL.Path = prefix + signedURL.Path
	return signedURL.String(), nil
}

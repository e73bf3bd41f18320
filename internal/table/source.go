package table

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Options configures reads of s3:// locations. Credentials come from the
// default AWS chain unless Credentials is set.
type S3Options struct {
	Region      string
	Endpoint    string
	PathStyle   bool
	Credentials aws.CredentialsProvider
	HTTPClient  aws.HTTPClient
}

// Open resolves a table location: "-" for stdin, s3://bucket/key, or a local
// file path.
func Open(ctx context.Context, location string, opts S3Options) (io.ReadCloser, error) {
	switch {
	case location == "-":
		return io.NopCloser(os.Stdin), nil
	case strings.HasPrefix(location, "s3://"):
		bucket, key, err := splitS3Location(location)
		if err != nil {
			return nil, err
		}
		return openS3(ctx, bucket, key, opts)
	default:
		f, err := os.Open(location)
		if err != nil {
			return nil, fmt.Errorf("opening table: %w", err)
		}
		return f, nil
	}
}

// Load opens and reads the table at location.
func Load(ctx context.Context, location string, s3opts S3Options, opts Options) (*Table, error) {
	rc, err := Open(ctx, location, s3opts)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	tbl, err := Read(rc, opts)
	if err != nil {
		return nil, fmt.Errorf("reading table %s: %w", location, err)
	}
	return tbl, nil
}

func splitS3Location(location string) (string, string, error) {
	rest := strings.TrimPrefix(location, "s3://")
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid s3 location %q, expected s3://bucket/key", location)
	}
	return bucket, key, nil
}

func openS3(ctx context.Context, bucket, key string, opts S3Options) (io.ReadCloser, error) {
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if opts.Credentials != nil {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(opts.Credentials))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.PathStyle {
			o.UsePathStyle = true
		}
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		if opts.HTTPClient != nil {
			o.HTTPClient = opts.HTTPClient
		}
	})

	out, err := client.GetObject(ctx, &s3.GetObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		return nil, fmt.Errorf("fetching s3://%s/%s: %w", bucket, key, err)
	}
	return out.Body, nil
}

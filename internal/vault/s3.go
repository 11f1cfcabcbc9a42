package vault

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Vault stores snapshots as objects under a key prefix in an S3 bucket.
type S3Vault struct {
	name   string
	bucket string
	prefix string
	client *s3.Client
}

// S3Options configures an S3 vault. AccessKey and SecretKey are optional;
// when empty the default credential chain (env, shared config, IAM role) is
// used.
type S3Options struct {
	Bucket    string
	Prefix    string
	Region    string
	AccessKey string
	SecretKey string
}

// NewS3Vault creates an S3 vault for the given bucket and prefix.
func NewS3Vault(name string, opts S3Options) (*S3Vault, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 vault requires a bucket")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	return &S3Vault{
		name:   name,
		bucket: opts.Bucket,
		prefix: normalizePrefix(opts.Prefix),
		client: s3.NewFromConfig(cfg),
	}, nil
}

func normalizePrefix(prefix string) string {
	if prefix == "" {
		return "snapshots/"
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}

// PutSnapshot uploads a snapshot, replacing any existing object with the same
// name.
func (v *S3Vault) PutSnapshot(name string, r io.Reader, size int64) error {
	uploader := manager.NewUploader(v.client)
	_, err := uploader.Upload(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(v.prefix + name),
		Body:   r,
	})
	if err != nil {
		return fmt.Errorf("uploading snapshot %s: %w", name, err)
	}
	return nil
}

// GetSnapshot downloads the named snapshot and writes it to w.
func (v *S3Vault) GetSnapshot(name string, w io.Writer) error {
	out, err := v.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(v.prefix + name),
	})
	if err != nil {
		return fmt.Errorf("snapshot not found: %s: %w", name, err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("reading snapshot %s: %w", name, err)
	}
	return nil
}

// ListSnapshots returns the names of all snapshots under the vault prefix.
func (v *S3Vault) ListSnapshots() ([]string, error) {
	var names []string
	paginator := s3.NewListObjectsV2Paginator(v.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(v.bucket),
		Prefix: aws.String(v.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(context.Background())
		if err != nil {
			return nil, fmt.Errorf("listing snapshots: %w", err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			names = append(names, strings.TrimPrefix(*obj.Key, v.prefix))
		}
	}
	return names, nil
}

// ValidateSetup verifies that the bucket is reachable with the configured
// credentials.
func (v *S3Vault) ValidateSetup() error {
	_, err := v.client.HeadBucket(context.Background(), &s3.HeadBucketInput{
		Bucket: aws.String(v.bucket),
	})
	if err != nil {
		return fmt.Errorf("bucket %s not accessible: %w", v.bucket, err)
	}
	return nil
}

// Compile-time check that S3Vault implements the Vault interface
var _ Vault = (*S3Vault)(nil)

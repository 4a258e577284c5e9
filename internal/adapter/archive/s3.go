package archive

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/couchcryptid/wrf-obsprep/internal/catalog"
)

type s3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3 is an archive stored in an S3 bucket under prefix/<YYYY>/<DDD>/.
type S3 struct {
	client s3API
	bucket string
	prefix string
}

// NewS3 loads the default AWS configuration for region. Without static or
// profile credentials in the environment, requests are sent unsigned so
// public archives work out of the box.
func NewS3(ctx context.Context, bucket, prefix, region string) (*S3, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if os.Getenv("AWS_ACCESS_KEY_ID") == "" && os.Getenv("AWS_PROFILE") == "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newS3(s3.NewFromConfig(awsCfg), bucket, prefix), nil
}

func newS3(client s3API, bucket, prefix string) *S3 {
	return &S3{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// List pages through every object under the bucket's key prefix.
func (s *S3) List(ctx context.Context, b catalog.Bucket) ([]catalog.Listing, error) {
	prefix := objectPrefix(s.prefix, b)
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	var out []catalog.Listing
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", s.bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") {
				continue
			}
			out = append(out, catalog.Listing{Name: path.Base(key), Ref: key})
		}
	}
	return out, nil
}

// Fetch downloads the object with key ref into dir.
func (s *S3) Fetch(ctx context.Context, ref, dir string) (string, error) {
	obj, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref),
	})
	if err != nil {
		return "", fmt.Errorf("get s3://%s/%s: %w", s.bucket, ref, err)
	}
	defer obj.Body.Close()
	return save(dir, path.Base(ref), obj.Body)
}

func objectPrefix(prefix string, b catalog.Bucket) string {
	if prefix == "" {
		return b.Path() + "/"
	}
	return prefix + "/" + b.Path() + "/"
}

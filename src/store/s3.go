package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3Config is the input configuration for an S3 compatible object storage
// used as a managed key-value backend.
type S3Config struct {
	Endpoint  string `long:"endpoint" env:"ENDPOINT" default:"" description:"S3 endpoint URL, empty for AWS"`
	Region    string `long:"region" env:"REGION" default:"us-east-1" description:"S3 region"`
	Bucket    string `long:"bucket" env:"BUCKET" default:"go-share" description:"S3 bucket name"`
	Prefix    string `long:"prefix" env:"PREFIX" default:"" description:"key prefix inside the bucket"`
	AccessKey string `long:"access-key" env:"ACCESS_KEY" default:"" description:"S3 access key, empty to use the default credentials chain"`
	SecretKey string `long:"secret-key" env:"SECRET_KEY" default:"" description:"S3 secret key"`
	PathStyle bool   `long:"path-style" env:"PATH_STYLE" description:"use path-style addressing (MinIO and friends)"`
}

// s3API is the part of the S3 client that S3KV needs.
type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3KV is a KV that stores every record as a JSON object in an S3 bucket:
// <prefix>/<namespace>/<key>.json
type S3KV struct {
	client s3API
	bucket string
	prefix string
}

// Fail if the struct does not match the KV interface.
var _ = KV(&S3KV{})

// NewS3KV creates an S3 client from the configuration.
func NewS3KV(ctx context.Context, cfg S3Config) (*S3KV, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("NewS3KV: bucket name is required")
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("NewS3KV: loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	return newS3KV(client, cfg.Bucket, cfg.Prefix), nil
}

func newS3KV(client s3API, bucket, prefix string) *S3KV {
	return &S3KV{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// NewS3Store returns a store.Interface that keeps shares in S3.
func NewS3Store(ctx context.Context, cfg S3Config) (*KVStore, error) {
	kv, err := NewS3KV(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewKVStore(kv), nil
}

func (s *S3KV) nsPrefix(ns string) string {
	return path.Join(s.prefix, ns) + "/"
}

func (s *S3KV) objectKey(ns, key string) string {
	return s.nsPrefix(ns) + key + ".json"
}

func isS3NotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

// Get downloads a record.
func (s *S3KV) Get(ctx context.Context, ns, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(ns, key)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("s3.Get (%s/%s): %w", ns, key, ErrNotFound)
		}
		return nil, fmt.Errorf("s3.Get (%s/%s): %w", ns, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3.Get (%s/%s): reading body: %w", ns, key, err)
	}
	return data, nil
}

// Put uploads a record replacing the existing one.
func (s *S3KV) Put(ctx context.Context, ns, key string, val []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(ns, key)),
		Body:          bytes.NewReader(val),
		ContentLength: aws.Int64(int64(len(val))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3.Put (%s/%s): %w", ns, key, err)
	}
	return nil
}

// Delete removes a record. S3 doesn't tell whether the deleted object
// existed, so we check first.
func (s *S3KV) Delete(ctx context.Context, ns, key string) (bool, error) {
	objKey := s.objectKey(ns, key)
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objKey),
	})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("s3.Delete (%s/%s): %w", ns, key, err)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objKey),
	})
	if err != nil {
		return false, fmt.Errorf("s3.Delete (%s/%s): %w", ns, key, err)
	}
	return true, nil
}

// List downloads all records of a namespace.
func (s *S3KV) List(ctx context.Context, ns string) (map[string][]byte, error) {
	prefix := s.nsPrefix(ns)
	res := make(map[string][]byte)

	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3.List (%s): %w", ns, err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(obj.Key), prefix), ".json")
			data, err := s.Get(ctx, ns, name)
			if errors.Is(err, ErrNotFound) {
				continue // deleted after listing
			}
			if err != nil {
				return nil, err
			}
			res[name] = data
		}
	}
	return res, nil
}

// Close does nothing, the S3 client has nothing to release.
func (s *S3KV) Close() error {
	return nil
}

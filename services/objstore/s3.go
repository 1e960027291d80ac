package objstore

import (
	"bytes"
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"

	"github.com/trezcool/ada/core"
	"github.com/trezcool/ada/core/receipt"
)

const defaultRegion = "us-east-1"

type s3PutAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store puts objects in an S3 (or S3 compatible) bucket.
type S3Store struct {
	client  s3PutAPI
	bucket  string
	baseURL string
}

var _ receipt.Store = (*S3Store)(nil)

// NewS3Store builds the client from static credentials. Objects are linked at baseURL when set,
// else at <endpoint>/<bucket>.
func NewS3Store(ctx context.Context, conf core.S3Config, baseURL string) (*S3Store, error) {
	if conf.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	if conf.AccessKey == "" || conf.SecretKey == "" {
		return nil, errors.New("s3 access and secret keys are required")
	}
	region := conf.Region
	if region == "" {
		region = defaultRegion
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(conf.AccessKey, conf.SecretKey, "")),
	)
	if err != nil {
		return nil, errors.Wrap(err, "loading AWS config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = conf.UsePathStyle
		if conf.Endpoint != "" {
			o.BaseEndpoint = aws.String(conf.Endpoint)
		}
	})

	if baseURL == "" {
		endpoint := conf.Endpoint
		if endpoint == "" {
			endpoint = "https://s3." + region + ".amazonaws.com"
		}
		baseURL = strings.TrimSuffix(endpoint, "/") + "/" + conf.Bucket
	}
	return newS3Store(client, conf.Bucket, baseURL), nil
}

func newS3Store(client s3PutAPI, bucket, baseURL string) *S3Store {
	return &S3Store{client: client, bucket: bucket, baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (s *S3Store) Put(ctx context.Context, key string, content []byte, contentType string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", errors.Wrapf(err, "uploading %s", key)
	}
	return s.baseURL + "/" + key, nil
}

package output

import (
	"bytes"
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vango-dev/precache/internal/errors"
)

// PutObjectAPI is the part of *s3.Client the writer uses.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Writer uploads to s3://bucket/key destinations.
//
// Example usage:
//
//	cfg, _ := config.LoadDefaultConfig(ctx)
//	w := &output.S3Writer{Client: s3.NewFromConfig(cfg)}
//	err := w.Write(ctx, "s3://my-site/sw.js", script)
type S3Writer struct {
	Client PutObjectAPI

	// CacheControl overrides the Cache-Control header (default: "no-cache").
	CacheControl string
}

// Write uploads data as a JavaScript object.
func (w *S3Writer) Write(ctx context.Context, dest string, data []byte) error {
	bucket, key, err := ParseS3URL(dest)
	if err != nil {
		return err
	}
	cacheControl := w.CacheControl
	if cacheControl == "" {
		cacheControl = "no-cache"
	}

	_, err = w.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(ContentType),
		CacheControl: aws.String(cacheControl),
	})
	if err != nil {
		return errors.New("E501").WithPath(dest).Wrap(err)
	}
	return nil
}

// ParseS3URL splits s3://bucket/key.
func ParseS3URL(dest string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(dest, "s3://")
	if ok {
		bucket, key, ok = strings.Cut(rest, "/")
	}
	if !ok || bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return "", "", errors.New("E106").
			WithOption("swDest").
			WithPath(dest).
			WithDetail("S3 destinations look like s3://bucket/path/sw.js.")
	}
	return bucket, key, nil
}

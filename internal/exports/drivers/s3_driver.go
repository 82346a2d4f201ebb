package drivers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const defaultPresignExpiry = time.Hour

// objectAPI is the subset of *s3.Client the driver calls.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type presignAPI interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Driver keeps report exports in an S3-compatible bucket. Objects are written with
// an attachment Content-Disposition so browsers download them the same way the local
// download route serves them.
type S3Driver struct {
	objects   objectAPI
	presigner presignAPI
	bucket    string
	publicURL string // set when the bucket is publicly readable
}

func NewS3Driver(client *s3.Client, bucket string, publicURL string) *S3Driver {
	return &S3Driver{
		objects:   client,
		presigner: s3.NewPresignClient(client),
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// AttachmentDisposition is the Content-Disposition every export is served with.
func AttachmentDisposition(key string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": path.Base(key)})
}

func (d *S3Driver) putInput(key string, body io.Reader, contentType string) *s3.PutObjectInput {
	return &s3.PutObjectInput{
		Bucket:             aws.String(d.bucket),
		Key:                aws.String(key),
		Body:               body,
		ContentType:        aws.String(contentType),
		ContentDisposition: aws.String(AttachmentDisposition(key)),
	}
}

func (d *S3Driver) presignInput(key string) *s3.GetObjectInput {
	return &s3.GetObjectInput{
		Bucket:                     aws.String(d.bucket),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String(AttachmentDisposition(key)),
	}
}

func (d *S3Driver) Save(ctx context.Context, key string, body io.Reader, contentType string) error {
	if _, err := d.objects.PutObject(ctx, d.putInput(key, body, contentType)); err != nil {
		return fmt.Errorf("failed to write export %s to bucket %s: %w", key, d.bucket, err)
	}
	return nil
}

func (d *S3Driver) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	out, err := d.objects.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to read export %s from bucket %s: %w", key, d.bucket, err)
	}
	contentType := aws.ToString(out.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return out.Body, contentType, nil
}

func (d *S3Driver) Delete(ctx context.Context, key string) error {
	_, err := d.objects.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete export %s from bucket %s: %w", key, d.bucket, err)
	}
	return nil
}

// GenerateURL returns the public object URL when one is configured, otherwise a
// presigned GET that forces the attachment disposition.
func (d *S3Driver) GenerateURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	if d.publicURL != "" {
		return d.publicURL + "/" + key, nil
	}
	if d.presigner == nil {
		return "", errors.New("export bucket is private and no presigner is configured")
	}
	if expires <= 0 {
		expires = defaultPresignExpiry
	}

	req, err := d.presigner.PresignGetObject(ctx, d.presignInput(key), s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("failed to presign export %s: %w", key, err)
	}
	return req.URL, nil
}

// Package assets turns a product storage location into a short lived download URL.
package assets

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/polkiloo/pixstore/internal/domain/model"
)

// ErrUnresolvable is returned when a product has no usable storage location.
var ErrUnresolvable = errors.New("asset location unresolvable")

// Resolver produces the redirect target for a redeemed grant.
type Resolver interface {
	Resolve(ctx context.Context, product model.Product) (string, error)
}

type objectPresigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Resolver presigns s3://bucket/key locations and passes http(s) URLs through.
type S3Resolver struct {
	presigner objectPresigner
	ttl       time.Duration
}

// NewS3Resolver creates resolver signing URLs valid for ttl.
func NewS3Resolver(client *s3.Client, ttl time.Duration) *S3Resolver {
	return &S3Resolver{presigner: s3.NewPresignClient(client), ttl: ttl}
}

// Resolve returns a URL the client may follow to fetch the file.
func (r *S3Resolver) Resolve(ctx context.Context, product model.Product) (string, error) {
	location := strings.TrimSpace(product.DownloadURL)
	if location == "" {
		return "", fmt.Errorf("product %d: %w", product.ID, ErrUnresolvable)
	}

	parsed, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("product %d: %w", product.ID, ErrUnresolvable)
	}

	switch parsed.Scheme {
	case "http", "https":
		return location, nil
	case "s3":
		bucket := parsed.Host
		key := strings.TrimPrefix(parsed.Path, "/")
		if bucket == "" || key == "" {
			return "", fmt.Errorf("product %d: %w", product.ID, ErrUnresolvable)
		}

		input := &s3.GetObjectInput{
			Bucket: &bucket,
			Key:    &key,
		}
		if name := fileName(product, key); name != "" {
			disposition := fmt.Sprintf("attachment; filename=%q", name)
			input.ResponseContentDisposition = &disposition
		}

		presigned, err := r.presigner.PresignGetObject(ctx, input, func(o *s3.PresignOptions) {
			o.Expires = r.ttl
		})
		if err != nil {
			return "", fmt.Errorf("failed to presign get object: %w", err)
		}
		return presigned.URL, nil
	default:
		return "", fmt.Errorf("product %d scheme %q: %w", product.ID, parsed.Scheme, ErrUnresolvable)
	}
}

func fileName(product model.Product, key string) string {
	base := key[strings.LastIndex(key, "/")+1:]
	if product.FileFormat == "" || strings.HasSuffix(strings.ToLower(base), "."+strings.ToLower(product.FileFormat)) {
		return base
	}
	return base + "." + product.FileFormat
}

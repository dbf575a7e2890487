package assets

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/polkiloo/pixstore/internal/config"
	"github.com/polkiloo/pixstore/internal/domain/model"
)

func staticConfig() aws.Config {
	return aws.Config{
		Region:      "us-east-1",
		Credentials: credentials.NewStaticCredentialsProvider("AKIDEXAMPLE", "secret", ""),
	}
}

func TestResolvePresignsS3Locations(t *testing.T) {
	resolver := NewS3Resolver(s3.NewFromConfig(staticConfig()), 15*time.Minute)

	got, err := resolver.Resolve(context.Background(), model.Product{ID: 1, FileFormat: "pdf", DownloadURL: "s3://assets/books/ebook"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	parsed, err := url.Parse(got)
	if err != nil {
		t.Fatalf("invalid url %q: %v", got, err)
	}
	if !strings.Contains(parsed.Host+parsed.Path, "assets") || !strings.HasSuffix(parsed.Path, "books/ebook") {
		t.Fatalf("unexpected presigned target: %s", got)
	}
	q := parsed.Query()
	if q.Get("X-Amz-Signature") == "" {
		t.Fatalf("expected signature in %s", got)
	}
	if q.Get("X-Amz-Expires") != "900" {
		t.Fatalf("expected 900s expiry, got %q", q.Get("X-Amz-Expires"))
	}
	if !strings.Contains(q.Get("response-content-disposition"), `ebook.pdf`) {
		t.Fatalf("expected content disposition with file name, got %q", q.Get("response-content-disposition"))
	}
}

func TestResolvePassesThroughHTTP(t *testing.T) {
	resolver := NewS3Resolver(s3.NewFromConfig(staticConfig()), time.Minute)

	got, err := resolver.Resolve(context.Background(), model.Product{ID: 2, DownloadURL: "https://cdn.example.com/course.zip"})
	if err != nil || got != "https://cdn.example.com/course.zip" {
		t.Fatalf("expected passthrough, got %q err=%v", got, err)
	}
}

func TestResolveRejectsUnusableLocations(t *testing.T) {
	resolver := NewS3Resolver(s3.NewFromConfig(staticConfig()), time.Minute)

	for _, location := range []string{"", "ftp://host/file", "s3://bucket-only", "s3:///key", "::bad"} {
		if _, err := resolver.Resolve(context.Background(), model.Product{ID: 3, DownloadURL: location}); !errors.Is(err, ErrUnresolvable) {
			t.Fatalf("expected unresolvable for %q, got %v", location, err)
		}
	}
}

type failingPresigner struct{}

func (failingPresigner) PresignGetObject(context.Context, *s3.GetObjectInput, ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	return nil, errors.New("sign")
}

func TestResolvePresignFailure(t *testing.T) {
	resolver := &S3Resolver{presigner: failingPresigner{}, ttl: time.Minute}
	if _, err := resolver.Resolve(context.Background(), model.Product{ID: 4, DownloadURL: "s3://b/k"}); err == nil || errors.Is(err, ErrUnresolvable) {
		t.Fatalf("expected presign error, got %v", err)
	}
}

func TestFileName(t *testing.T) {
	cases := map[string]struct {
		product model.Product
		key     string
		want    string
	}{
		"adds extension":  {product: model.Product{FileFormat: "pdf"}, key: "a/b/book", want: "book.pdf"},
		"keeps extension": {product: model.Product{FileFormat: "PDF"}, key: "book.pdf", want: "book.pdf"},
		"no format":       {product: model.Product{}, key: "dir/file.bin", want: "file.bin"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := fileName(tc.product, tc.key); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestNewResolverUsesConfig(t *testing.T) {
	resolver := newResolver(staticConfig(), &config.Config{AssetURLTTL: time.Minute})
	if resolver == nil {
		t.Fatal("expected resolver")
	}
}

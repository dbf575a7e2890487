package awsconf

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/polkiloo/pixstore/internal/config"
)

func isolate(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "credentials"))
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("AWS_REGION", "")
}

func TestLoadUsesRegion(t *testing.T) {
	isolate(t)

	cfg, err := Load(context.Background(), "sa-east-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Region != "sa-east-1" {
		t.Fatalf("expected region sa-east-1, got %q", cfg.Region)
	}
}

func TestNewFromConfig(t *testing.T) {
	isolate(t)

	cfg, err := newFromConfig(context.Background(), &config.Config{AWSRegion: "us-east-2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Region != "us-east-2" {
		t.Fatalf("expected region us-east-2, got %q", cfg.Region)
	}
}

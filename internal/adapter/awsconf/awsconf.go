// Package awsconf loads the shared AWS SDK configuration used by the S3 and SNS adapters.
package awsconf

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"go.uber.org/fx"

	"github.com/polkiloo/pixstore/internal/config"
)

// Module provides aws.Config to fx graph.
var Module = fx.Provide(newFromConfig)

// Load resolves credentials and region from the default provider chain.
func Load(ctx context.Context, region string) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}

func newFromConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return Load(ctx, cfg.AWSRegion)
}

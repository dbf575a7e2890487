package assets

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/fx"

	"github.com/polkiloo/pixstore/internal/config"
)

// Module exposes the asset resolver to fx graph.
var Module = fx.Provide(newResolver)

func newResolver(awsCfg aws.Config, cfg *config.Config) Resolver {
	return NewS3Resolver(s3.NewFromConfig(awsCfg), cfg.AssetURLTTL)
}

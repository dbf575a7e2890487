package auth

import (
	"go.uber.org/fx"

	"github.com/polkiloo/pixstore/internal/config"
)

// Module provides webhook and operator authentication primitives via fx.
var Module = fx.Options(
	fx.Provide(newKeyHasher),
	fx.Provide(newAdminGuard),
	fx.Provide(newSignatureVerifier),
)

func newKeyHasher() KeyHasher {
	return NewBcryptHasher(0)
}

type authParams struct {
	fx.In

	Config *config.Config
	Hasher KeyHasher
}

func newAdminGuard(p authParams) *AdminGuard {
	return NewAdminGuard(p.Config.AdminKeyHash, p.Hasher)
}

func newSignatureVerifier(cfg *config.Config) *SignatureVerifier {
	return NewSignatureVerifier(cfg.WebhookSecret, Options{})
}

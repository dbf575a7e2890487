package usecase

import (
	"time"

	"go.uber.org/fx"
)

// Module provides core business use cases to the fx container.
var Module = fx.Provide(
	NewPolicy,
	func() Clock { return time.Now },
	func() TokenGenerator { return NewDownloadToken },
	NewCatalogUseCase,
	NewCheckoutUseCase,
	NewWebhookUseCase,
	NewDownloadUseCase,
	NewStatusUseCase,
)

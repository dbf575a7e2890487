package mercadopago

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/pixstore/internal/config"
)

// Module exposes the payment gateway client to fx graph.
var Module = fx.Provide(newClient)

type clientParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newClient(p clientParams) (Gateway, error) {
	return NewHTTPClient(p.Config.GatewayBaseURL, p.Config.GatewayAccessToken, p.Config.NotificationURL, p.Config.GatewayTimeout, p.Logger)
}

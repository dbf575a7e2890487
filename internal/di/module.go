package di

import (
	"go.uber.org/fx"

	"github.com/polkiloo/pixstore/internal/adapter/assets"
	"github.com/polkiloo/pixstore/internal/adapter/awsconf"
	"github.com/polkiloo/pixstore/internal/adapter/mercadopago"
	"github.com/polkiloo/pixstore/internal/adapter/notify"
	"github.com/polkiloo/pixstore/internal/app"
	"github.com/polkiloo/pixstore/internal/cache"
	"github.com/polkiloo/pixstore/internal/config"
	"github.com/polkiloo/pixstore/internal/logger"
	"github.com/polkiloo/pixstore/internal/pkg/auth"
	"github.com/polkiloo/pixstore/internal/server/http/handlers"
	"github.com/polkiloo/pixstore/internal/server/http/router"
	"github.com/polkiloo/pixstore/internal/storage/postgres"
	"github.com/polkiloo/pixstore/internal/usecase"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		awsconf.Module,
		auth.Module,
		postgres.Module,
		mercadopago.Module,
		notify.Module,
		assets.Module,
		cache.Module,
		usecase.Module,
		fx.Provide(func(s *postgres.Storage) app.HealthChecker { return s }),
		fx.Provide(func(f *app.StoreFacade) handlers.StoreFacade { return f }),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}

//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"

	"certgen/internal"
	"certgen/internal/integrity"
	"certgen/internal/providers"
	"certgen/internal/render"
	"certgen/internal/services"
	"certgen/internal/store"
	"certgen/internal/structures"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,

		store.NewCompressor,
		store.NewRecordStoreProvider,
		integrity.NewEngineProvider,
		integrity.NewIdentifierGenerator,
		render.NewTemplateProvider,
		render.NewRendererProvider,
		services.NewCertificateService,
		services.NewVerificationService,
		services.NewDeviceService,
		internal.NewApp,
	)

	return nil, nil
}

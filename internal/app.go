package internal

import (
	"certgen/internal/providers"
	"certgen/internal/services"
	"certgen/internal/store"
	"certgen/internal/structures"
)

// App holds everything one CLI invocation needs. Close must be called once the
// command finishes.
type App struct {
	Conf         *structures.Config
	Logger       providers.Logger
	Store        store.RecordStore
	Certificates services.CertificateServiceInterface
	Verifier     services.VerificationServiceInterface
	Devices      services.DeviceServiceInterface
	Metrics      providers.MetricsProviderInterface
}

func NewApp(
	conf *structures.Config,
	logger providers.Logger,
	recordStore store.RecordStore,
	certificates *services.CertificateService,
	verifier *services.VerificationService,
	devices *services.DeviceService,
	metrics providers.MetricsProviderInterface,
) *App {
	logger.Debugf(providers.TypeApp, "Starting %s, store %s", conf.AppName, conf.Store.FilePath)
	return &App{
		Conf:         conf,
		Logger:       logger,
		Store:        recordStore,
		Certificates: certificates,
		Verifier:     verifier,
		Devices:      devices,
		Metrics:      metrics,
	}
}

func (a *App) Close() {
	if err := a.Metrics.Flush(); err != nil {
		a.Logger.Errorf(providers.TypeApp, "Metrics flush error: %s", err)
	}
	a.Store.Close()
	a.Logger.Close()
}

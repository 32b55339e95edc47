package analytics

import (
	"go.uber.org/fx"

	"github.com/glucolink/cgm/config"
	"github.com/glucolink/cgm/logger"
	"github.com/glucolink/cgm/patterns"
	"github.com/glucolink/cgm/sessions"
	"github.com/glucolink/cgm/vendors"
	"github.com/glucolink/cgm/vendors/dexcom"
	"github.com/glucolink/cgm/vendors/libre"
	"github.com/glucolink/cgm/vendors/nightscout"
)

// Dependencies wires the full analytics stack for embedding into an fx
// application. Callers provide their own invocations on top:
//
//	fx.New(analytics.Dependencies(), fx.Invoke(run))
func Dependencies() fx.Option {
	return fx.Provide(
		logger.NewProductionLogger,
		logger.Sugar,
		config.NewConfig,
		sessions.NewCache,
		vendors.NewHTTPClient,
		dexcom.NewAdapter,
		libre.NewAdapter,
		nightscout.NewAdapter,
		newRegistry,
		patterns.NewDetector,
		NewService,
	)
}

func newRegistry(d *dexcom.Adapter, l *libre.Adapter, n *nightscout.Adapter) (vendors.Registry, error) {
	return vendors.NewRegistry(d, l, n)
}

package commands

import (
	"io"

	"github.com/Sumatoshi-tech/gridscreen/pkg/config"
	"github.com/Sumatoshi-tech/gridscreen/pkg/observability"
	"github.com/Sumatoshi-tech/gridscreen/pkg/version"
)

// observabilityInit builds the telemetry providers for one command run.
type observabilityInit func(cfg *config.Config, mode observability.AppMode, logOutput io.Writer) (observability.Providers, error)

func initObservability(cfg *config.Config, mode observability.AppMode, logOutput io.Writer) (observability.Providers, error) {
	level, err := cfg.Logging.SlogLevel()
	if err != nil {
		return observability.Providers{}, err
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Environment = cfg.Telemetry.Environment
	obsCfg.Mode = mode
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(cfg.Telemetry.OTLPHeaders)
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.SampleRatio = cfg.Telemetry.SampleRatio
	obsCfg.DebugTrace = cfg.Telemetry.DebugTrace
	obsCfg.PrometheusMetrics = mode == observability.ModeServe
	obsCfg.LogLevel = level
	obsCfg.LogJSON = cfg.Logging.JSON()
	obsCfg.LogOutput = logOutput

	return observability.Init(obsCfg)
}

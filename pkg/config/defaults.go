package config

import "time"

// Screening parameter defaults.
const (
	DefaultShortHourWindow       = 24
	DefaultIQRHours              = 120
	DefaultNDays                 = 10
	DefaultGlobalDemCut          = 10.0
	DefaultLocalDemCutUp         = 3.5
	DefaultLocalDemCutDown       = 2.5
	DefaultDeltaMultiplier       = 2.0
	DefaultDeltaSingleMultiplier = 2.0
	DefaultRelMultiplier         = 15.0
	DefaultAnomalousRegionsWidth = 24
	DefaultAnomalousPct          = 0.85
)

// Input defaults.
const (
	DefaultTimestampColumn = "timestamp"
	DefaultValueColumn     = "value"
	DefaultCategoryColumn  = "category"
	DefaultTimeLayout      = time.RFC3339
	DefaultDelimiter       = ","
	DefaultFillGaps        = false
)

// Output defaults.
const (
	DefaultOutputDir    = ""
	DefaultOutputFormat = "table"
	DefaultWithDerived  = false
	DefaultCompress     = false
	DefaultNoColor      = false
)

// Logging defaults.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Telemetry defaults.
const (
	DefaultOTLPEndpoint = ""
	DefaultOTLPInsecure = false
	DefaultSampleRatio  = 0.0
	DefaultEnvironment  = ""
	DefaultDebugTrace   = false
)

// Server defaults.
const (
	DefaultServerAddr      = ":8080"
	DefaultReadTimeout     = "30s"
	DefaultWriteTimeout    = "60s"
	DefaultIdleTimeout     = "120s"
	DefaultShutdownTimeout = "10s"
	DefaultMaxBodySize     = "8MB"
	DefaultRateLimit       = 20.0
	DefaultRateBurst       = 40
	DefaultResultCacheSize = "32MB"
)

// Batch defaults. Zero workers means one per CPU.
const (
	DefaultBatchWorkers = 0
)

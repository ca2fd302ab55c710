// Package logger holds the zap logger shared by the api, worker, and
// migrate binaries. Every line carries a service field so the three
// processes can be told apart in aggregated output.
package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu    sync.Mutex
	sugar *zap.SugaredLogger
)

// Init builds the shared logger for the given environment. Production
// emits sampled JSON with RFC3339 timestamps; anything else emits
// colored console lines at debug level. Repeated calls keep the first
// logger.
func Init(env string) {
	mu.Lock()
	defer mu.Unlock()
	initLocked(env)
}

func initLocked(env string) {
	if sugar != nil {
		return
	}

	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.InitialFields = map[string]interface{}{"service": "magnate"}

	base, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		base = zap.NewNop()
	}
	sugar = base.Sugar()
}

// Get returns the shared sugared logger. If Init has not been called,
// a development logger is built.
func Get() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	initLocked("development")
	return sugar
}

// Named returns the shared logger scoped to one component, e.g.
// Named("tick") or Named("worker").
func Named(component string) *zap.SugaredLogger {
	return Get().Named(component)
}

// Sync flushes buffered entries. Deferred from each binary's main.
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	if sugar != nil {
		_ = sugar.Sync()
	}
}

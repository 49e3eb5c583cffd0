// Package logging builds the zap logger shared by the coordinator and
// shard engine, plus the sampling core spec.md §7 requires for
// high-frequency OutOfMemory logging ("logged at most once per 16
// occurrences and per second").
//
// Grounded on the teacher's declared-but-unused go.uber.org/zap
// dependency; the sampler wiring follows zap's own zap.NewSamplerWithOptions
// recipe, the idiomatic way to rate-limit a log line in this ecosystem
// rather than a hand-rolled token bucket.
package logging

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-profile zap logger wrapped in a sampler core:
// at most 16 identical messages per second pass through before the core
// starts dropping (thereafter logging every 1000th), matching spec.md
// §7's rate-limit rule at the logger level instead of in caller code.
func New() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	base, err := cfg.Build()
	if err != nil {
		// Config is static and always valid; a build failure here means
		// the zap API changed underneath us.
		panic(err)
	}
	sampled := base.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewSamplerWithOptions(core, time.Second, 16, 1000)
	}))
	return sampled
}

// NewDevelopment builds a human-readable console logger for the demo
// driver and tests, where a sampled production encoder would be noise.
func NewDevelopment() *zap.Logger {
	log, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return log
}

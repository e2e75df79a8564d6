package logger

import (
	"go.uber.org/zap"

	"mybucks/internal/app/port"
)

// zapAdapter implements port.Logger on top of a zap.SugaredLogger, so services
// that only know the narrow logging contract still write to the shared sink.
type zapAdapter struct {
	sugar *zap.SugaredLogger
}

// NewAdapter wraps a zap logger in the port.Logger contract.
func NewAdapter(zl *zap.Logger) port.Logger {
	return &zapAdapter{sugar: zl.Sugar()}
}

func (a *zapAdapter) Info(msg string, args ...any) {
	a.sugar.Infow(msg, args...)
}

func (a *zapAdapter) Debug(msg string, args ...any) {
	a.sugar.Debugw(msg, args...)
}

func (a *zapAdapter) Warn(msg string, args ...any) {
	a.sugar.Warnw(msg, args...)
}

func (a *zapAdapter) Error(msg string, args ...any) {
	a.sugar.Errorw(msg, args...)
}

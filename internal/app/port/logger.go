package port

// Logger is the minimal logging contract services depend on, keeping them
// decoupled from the concrete zap setup.
type Logger interface {
	Info(msg string, args ...any)
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

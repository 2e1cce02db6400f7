package logger

// NoOpLogger discards everything.
type NoOpLogger struct{}

func NewNoOp() Interface {
	return NoOpLogger{}
}

func (NoOpLogger) Debug(string, ...any) {}

func (NoOpLogger) Info(string, ...any) {}

func (NoOpLogger) Warn(string, ...any) {}

func (NoOpLogger) Error(string, ...any) {}

func (l NoOpLogger) With(...any) Interface { return l }

func (NoOpLogger) Sync() error { return nil }

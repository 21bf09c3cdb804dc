package httpclient

import (
	"context"
	"time"
)

// Transport opens handles onto an HTTP execution engine.
type Transport interface {
	Open() (Handle, error)
}

// Handle is one exclusive use of the transport. Callers execute it once and
// must Close it on every path.
type Handle interface {
	Execute(ctx context.Context, s *Settings) *Result
	Close() error
}

// Result is what the transport reports after a call completes.
type Result struct {
	// Raw is the header-inclusive response, empty when nothing was buffered.
	Raw []byte
	// HeaderSize is the byte length of all header blocks at the start of Raw.
	HeaderSize   int
	StatusCode   int
	ErrCode      ErrorCode
	ErrMessage   string
	EffectiveURL string
	TotalTime    time.Duration
}

// Logger defines the logging surface the client relies on.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) InfoObj(string, string, interface{})  {}
func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{})  {}
func (noopLogger) ErrorObj(string, string, interface{}) {}

func ensureLogger(log Logger) Logger {
	if log == nil {
		return noopLogger{}
	}
	return log
}

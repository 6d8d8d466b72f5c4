package setstate

import (
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type LogLevel int

const (
	undefined LogLevel = iota
	LogLevelError
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "error"
	case LogLevelWarn:
		return "warn"
	case LogLevelInfo:
		return "info"
	case LogLevelDebug:
		return "debug"
	}
	return "undefined"
}

// ParseLogLevel maps a level name (error, warn, info, debug) to a LogLevel.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return LogLevelError, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "info":
		return LogLevelInfo, nil
	case "debug":
		return LogLevelDebug, nil
	}
	return undefined, errors.Errorf("unknown log level %q", s)
}

// Options defines configuration options for the application
type Options struct {
	// The http server address. e.g. ':3000'
	ServerAddress string

	// Level of the logs to write.
	// Options: Error, Warn, Info, Debug.
	LogLvl LogLevel

	// LogOutput receives the JSON log records. Defaults to os.Stderr.
	LogOutput io.Writer

	// The title of the HTML document.
	DocumentTitle string

	// MaxUpdatePasses bounds the flush rounds of a single event pass. Commit
	// callbacks that keep queuing updates past this bound have the rest of
	// their queue dropped.
	MaxUpdatePasses int

	// ContextTTL is how long a context without a live SSE stream is kept
	// before it is unmounted.
	ContextTTL time.Duration
}

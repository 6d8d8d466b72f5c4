package setstate

import (
	"github.com/rs/zerolog"
)

func zerologLevel(l LogLevel) zerolog.Level {
	switch l {
	case LogLevelError:
		return zerolog.ErrorLevel
	case LogLevelWarn:
		return zerolog.WarnLevel
	case LogLevelDebug:
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

func (v *V) resetLogger() {
	v.log = zerolog.New(v.cfg.LogOutput).
		Level(zerologLevel(v.cfg.LogLvl)).
		With().Timestamp().Logger()
}

// Logger returns the application logger. Components use it for their own
// records so they share the configured level and output.
func (v *V) Logger() zerolog.Logger {
	return v.log
}

func (v *V) withCtx(c *Context, e *zerolog.Event) *zerolog.Event {
	if c != nil && c.id != "" {
		e = e.Str("ctx", c.id)
	}
	return e
}

func (v *V) logErr(c *Context, format string, a ...any) {
	v.withCtx(c, v.log.Error()).Msgf(format, a...)
}

func (v *V) logWarn(c *Context, format string, a ...any) {
	v.withCtx(c, v.log.Warn()).Msgf(format, a...)
}

func (v *V) logInfo(c *Context, format string, a ...any) {
	v.withCtx(c, v.log.Info()).Msgf(format, a...)
}

func (v *V) logDebug(c *Context, format string, a ...any) {
	v.withCtx(c, v.log.Debug()).Msgf(format, a...)
}

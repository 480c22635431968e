package boardlink

import "log"

// Logger is a *log.Logger with a debug switch. The zero value logs to log.Default().
type Logger struct {
	L     *log.Logger
	Debug bool
}

func (l Logger) logger() *log.Logger {
	if l.L == nil {
		return log.Default()
	}
	return l.L
}

func (l Logger) Printf(format string, args ...interface{}) {
	l.logger().Printf(format, args...)
}

// Debugf logs only when Debug is set.
func (l Logger) Debugf(format string, args ...interface{}) {
	if l.Debug {
		l.logger().Printf("debug: "+format, args...)
	}
}

package mqtt

import (
	"fmt"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/mailbox-sentry/internal/logger"
)

// pahoLogger adapts a zap logger to paho's Println/Printf logger interface.
type pahoLogger struct {
	log   *zap.SugaredLogger
	level zapcore.Level
}

func (l pahoLogger) Println(v ...any) {
	l.write(fmt.Sprint(v...))
}

func (l pahoLogger) Printf(format string, v ...any) {
	l.write(fmt.Sprintf(format, v...))
}

func (l pahoLogger) write(message string) {
	switch l.level {
	case zapcore.DebugLevel:
		l.log.Debug(message)
	case zapcore.WarnLevel:
		l.log.Warn(message)
	default:
		l.log.Error(message)
	}
}

// ConfigureLogging routes paho's internal logs into the global logger at the
// given level. Paho loggers are package globals, so this affects every client.
func ConfigureLogging(level zapcore.Level) {
	base := logger.Logger().Named("paho").WithOptions(logger.WithLevel(level))

	paho.ERROR = pahoLogger{log: base, level: zapcore.ErrorLevel}
	paho.CRITICAL = pahoLogger{log: base, level: zapcore.ErrorLevel}
	paho.WARN = pahoLogger{log: base, level: zapcore.WarnLevel}
	paho.DEBUG = pahoLogger{log: base, level: zapcore.DebugLevel}
}

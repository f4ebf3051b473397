package logger

import (
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/sirupsen/logrus"
)

// Kratos adapts a logrus logger to the kratos log.Logger interface so
// transport middleware logs through the process logger.
type Kratos struct {
	log logrus.FieldLogger
}

// NewKratos wraps l.
func NewKratos(l logrus.FieldLogger) *Kratos {
	return &Kratos{log: l}
}

// Log implements log.Logger. The "msg" key becomes the entry message and
// the remaining pairs become fields.
func (k *Kratos) Log(level log.Level, keyvals ...any) error {
	fields := logrus.Fields{}
	var msg string
	for i := 0; i < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		var val any = "(MISSING)"
		if i+1 < len(keyvals) {
			val = keyvals[i+1]
		}
		if key == log.DefaultMessageKey {
			msg = fmt.Sprint(val)
			continue
		}
		fields[key] = val
	}

	entry := k.log.WithFields(fields)
	switch level {
	case log.LevelDebug:
		entry.Debug(msg)
	case log.LevelWarn:
		entry.Warn(msg)
	case log.LevelError, log.LevelFatal:
		entry.Error(msg)
	default:
		entry.Info(msg)
	}
	return nil
}

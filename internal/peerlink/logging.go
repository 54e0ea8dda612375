package peerlink

import (
	"fmt"

	"github.com/pion/logging"
	"github.com/rs/zerolog"
)

// zerologFactory routes pion's internal logging into zerolog. pion is chatty,
// so its info level is mapped to debug.
type zerologFactory struct {
	log *zerolog.Logger
}

func (f zerologFactory) NewLogger(scope string) logging.LeveledLogger {
	l := f.log.With().Str("pion", scope).Logger()
	return zerologLeveled{log: &l}
}

type zerologLeveled struct {
	log *zerolog.Logger
}

func (l zerologLeveled) Trace(msg string) { l.log.Trace().Msg(msg) }
func (l zerologLeveled) Tracef(format string, args ...interface{}) {
	l.log.Trace().Msg(fmt.Sprintf(format, args...))
}
func (l zerologLeveled) Debug(msg string) { l.log.Debug().Msg(msg) }
func (l zerologLeveled) Debugf(format string, args ...interface{}) {
	l.log.Debug().Msg(fmt.Sprintf(format, args...))
}
func (l zerologLeveled) Info(msg string) { l.log.Debug().Msg(msg) }
func (l zerologLeveled) Infof(format string, args ...interface{}) {
	l.log.Debug().Msg(fmt.Sprintf(format, args...))
}
func (l zerologLeveled) Warn(msg string) { l.log.Warn().Msg(msg) }
func (l zerologLeveled) Warnf(format string, args ...interface{}) {
	l.log.Warn().Msg(fmt.Sprintf(format, args...))
}
func (l zerologLeveled) Error(msg string) { l.log.Error().Msg(msg) }
func (l zerologLeveled) Errorf(format string, args ...interface{}) {
	l.log.Error().Msg(fmt.Sprintf(format, args...))
}

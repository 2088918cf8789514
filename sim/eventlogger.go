package sim

import (
	"reflect"

	"github.com/sirupsen/logrus"
)

// A Named object has a name that the logs can print.
type Named interface {
	Name() string
}

// EventLogger is a hook that prints the event information
type EventLogger struct {
	log   *logrus.Entry
	level logrus.Level
}

// NewEventLogger returns a new EventLogger which will write into the logger
// at debug level.
func NewEventLogger(log *logrus.Entry) *EventLogger {
	return &EventLogger{log: log, level: logrus.DebugLevel}
}

// WithLevel changes the level the events are logged at.
func (h *EventLogger) WithLevel(level logrus.Level) *EventLogger {
	h.level = level
	return h
}

// Func writes the event information into the logger
func (h *EventLogger) Func(ctx HookCtx) {
	if ctx.Pos != HookPosBeforeEvent {
		return
	}

	evt, ok := ctx.Item.(*Event)
	if !ok {
		return
	}

	fields := logrus.Fields{
		"time":  evt.Time().String(),
		"queue": evt.Kind().String(),
		"seq":   evt.Seq(),
	}

	if named, ok := evt.Handler().(Named); ok {
		fields["handler"] = named.Name()
	} else {
		fields["handler"] = reflect.TypeOf(evt.Handler()).String()
	}

	h.log.WithFields(fields).Log(h.level, "event released")
}

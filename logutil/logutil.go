// Package logutil builds the logfmt loggers shared by every o2graph
// package.
package logutil

import (
	"io"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Discard is a Logger that ignores all loggings.
var Discard = log.NewNopLogger()

// New returns a logfmt logger writing to w. The verbosity selects the
// lowest level that is let through: 0 keeps warnings and errors, 1 adds
// info and 2 or more adds debug.
func New(w io.Writer, verbose int) log.Logger {
	l := log.NewLogfmtLogger(log.NewSyncWriter(w))
	l = log.With(l, "ts", log.DefaultTimestampUTC)
	return level.NewFilter(l, Allow(verbose))
}

// Allow maps a verbosity to a level filter option.
func Allow(verbose int) level.Option {
	switch {
	case verbose <= 0:
		return level.AllowWarn()
	case verbose == 1:
		return level.AllowInfo()
	default:
		return level.AllowDebug()
	}
}

// OrDiscard returns l, or Discard when l is nil.
func OrDiscard(l log.Logger) log.Logger {
	if l == nil {
		return Discard
	}
	return l
}

// With tags l with a component name.
func With(l log.Logger, component string) log.Logger {
	return log.With(OrDiscard(l), "component", component)
}

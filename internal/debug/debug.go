// Package debug handles protocol tracing enabled by $WAYLAND_DEBUG.
package debug

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

var trace *logrus.Entry

func init() {
	debugLevel, err := strconv.ParseInt(os.Getenv("WAYLAND_DEBUG"), 10, 0)
	if err != nil {
		return
	}
	if debugLevel > 0 {
		logger := logrus.New()
		logger.SetLevel(logrus.TraceLevel)
		trace = logger.WithField("component", "wire")
	}
}

// Enabled reports whether protocol tracing is on.
func Enabled() bool {
	return trace != nil
}

func Printf(str string, args ...any) {
	if trace == nil {
		return
	}
	trace.Tracef(str, args...)
}

// Package logging provides the tagged stdlib logger used across trustwrapper
// components. It intentionally stays on the standard library: every example
// in the corpus that touches this concern (health_monitor.go, main.go) uses
// log.Logger with a bracketed component prefix rather than a third-party
// structured logger, so that is the convention carried here.
package logging

import (
	"log"
	"os"
)

// New returns a logger tagged with the given component name, e.g. "[oracle]".
// Passing a nil *log.Logger elsewhere in the module falls back to a logger
// built this way so components remain usable in tests without wiring one in.
func New(component string) *log.Logger {
	return log.New(os.Stdout, "["+component+"] ", log.LstdFlags|log.Lmicroseconds)
}

// OrDefault returns l if non-nil, otherwise a freshly tagged logger.
func OrDefault(l *log.Logger, component string) *log.Logger {
	if l != nil {
		return l
	}
	return New(component)
}

// Package applog is a small leveled wrapper over the standard log
// package, used by cmd/bufrcodec and cmd/bufrsrv. The dsnet-compress
// teacher packages never log (they are pure libraries); this style is
// grounded instead on ClusterCockpit-cc-backend/pkg/log, which wraps
// stdlib log the same way rather than pulling in a third-party logger
// (DESIGN.md's stdlib-justification note covers why no ecosystem
// logging library appears anywhere in the retrieved pack).
package applog

import (
	"io"
	"log"
	"os"
)

var (
	DebugPrefix = "[DEBUG] "
	InfoPrefix  = "[INFO]  "
	WarnPrefix  = "[WARN]  "
	ErrPrefix   = "[ERROR] "
)

var (
	debugLog = log.New(os.Stderr, DebugPrefix, log.LstdFlags)
	infoLog  = log.New(os.Stderr, InfoPrefix, log.LstdFlags)
	warnLog  = log.New(os.Stderr, WarnPrefix, log.LstdFlags)
	errLog   = log.New(os.Stderr, ErrPrefix, log.LstdFlags)
)

var debugEnabled = false

// SetDebug turns debug-level output on or off; everything else always
// logs.
func SetDebug(enabled bool) { debugEnabled = enabled }

// SetOutput redirects all levels to w, for tests or embedding.
func SetOutput(w io.Writer) {
	debugLog.SetOutput(w)
	infoLog.SetOutput(w)
	warnLog.SetOutput(w)
	errLog.SetOutput(w)
}

func Debugf(format string, args ...any) {
	if debugEnabled {
		debugLog.Printf(format, args...)
	}
}

func Infof(format string, args ...any)  { infoLog.Printf(format, args...) }
func Warnf(format string, args ...any)  { warnLog.Printf(format, args...) }
func Errorf(format string, args ...any) { errLog.Printf(format, args...) }

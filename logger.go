package rbzk

import (
	"log"
	"os"
)

// logger is the pluggable logging interface used throughout rbzk. Embedding
// applications may replace the package-level Log with their own
// implementation before calling New.
type logger interface {
	Info(v ...interface{})
	Infof(format string, v ...interface{})
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})
	Error(v ...interface{})
	Errorf(format string, v ...interface{})
}

// Log is the package-level logger used by every connection that does not
// set its own. Debug output is silent by default; SetVerbose(true) enables
// it.
var Log logger = newDefaultLogger()

type defaultLogger struct {
	stdLog  *log.Logger
	errLog  *log.Logger
	verbose bool
}

func newDefaultLogger() *defaultLogger {
	return &defaultLogger{
		stdLog: log.New(os.Stdout, "", log.LstdFlags),
		errLog: log.New(os.Stderr, "", log.LstdFlags),
	}
}

func (l *defaultLogger) Info(v ...interface{})                 { l.stdLog.Print(v...) }
func (l *defaultLogger) Infof(format string, v ...interface{})  { l.stdLog.Printf(format, v...) }
func (l *defaultLogger) Error(v ...interface{})                { l.errLog.Println(v...) }
func (l *defaultLogger) Errorf(format string, v ...interface{}) { l.errLog.Printf(format, v...) }

func (l *defaultLogger) Debug(v ...interface{}) {
	if l.verbose {
		l.stdLog.Print(v...)
	}
}

func (l *defaultLogger) Debugf(format string, v ...interface{}) {
	if l.verbose {
		l.stdLog.Printf(format, v...)
	}
}

// SetVerbose toggles Debug/Debugf output on the default logger. It is a
// no-op if the package-level Log has been replaced with a custom
// implementation.
func SetVerbose(verbose bool) {
	if dl, ok := Log.(*defaultLogger); ok {
		dl.verbose = verbose
	}
}

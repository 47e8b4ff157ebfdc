package poselog

import (
	"io"
	"log"
)

// Log streams, from rarest to noisiest.
type stream int

const (
	opsStream   stream = iota // a file or directory could not be read
	diagStream                // one summary line per scanned file
	traceStream               // one line per skipped pose or landmark
	numStreams
)

var loggers [numStreams]*log.Logger

// SetLogWriters routes the ops, diag and trace streams. A nil writer
// silences its stream.
func SetLogWriters(ops, diag, trace io.Writer) {
	for s, w := range [numStreams]io.Writer{ops, diag, trace} {
		loggers[s] = nil
		if w != nil {
			loggers[s] = log.New(w, "[poselog] ", log.LstdFlags|log.Lmicroseconds)
		}
	}
}

func logf(s stream, format string, args ...interface{}) {
	if l := loggers[s]; l != nil {
		l.Printf(format, args...)
	}
}

func opsf(format string, args ...interface{})   { logf(opsStream, format, args...) }
func diagf(format string, args ...interface{})  { logf(diagStream, format, args...) }
func tracef(format string, args ...interface{}) { logf(traceStream, format, args...) }

// Every call site picks one of the three streams; there is no catch-all Debugf.

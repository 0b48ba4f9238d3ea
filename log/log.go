/*************************************************************************
 * Copyright 2026 RCS Lab. All rights reserved.
 * Contact: <aurora@rcslab.dev>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package log implements a small level-gated, multi-writer structured
// logger: every line is emitted as an RFC 5424 syslog message carrying
// a structured-data element of key=value fields (oid, epoch, pid, ...)
// rather than freeform text.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/crewjam/rfc5424"
)

type Level int

const (
	OFF Level = iota
	DEBUG
	INFO
	WARN
	ERROR
	CRITICAL
	FATAL
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case CRITICAL:
		return "CRITICAL"
	case FATAL:
		return "FATAL"
	default:
		return "OFF"
	}
}

// priority maps a Level onto the nearest RFC 5424 facility/severity
// pair; everything this engine logs is a User-facility message.
func (l Level) priority() rfc5424.Priority {
	switch l {
	case DEBUG:
		return rfc5424.User | rfc5424.Debug
	case INFO:
		return rfc5424.User | rfc5424.Info
	case WARN:
		return rfc5424.User | rfc5424.Warning
	case ERROR:
		return rfc5424.User | rfc5424.Error
	case CRITICAL:
		return rfc5424.User | rfc5424.Crit
	case FATAL:
		return rfc5424.User | rfc5424.Emergency
	default:
		return 0
	}
}

// ParseLevel maps a config string (case-insensitive) to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "OFF":
		return OFF, nil
	case "DEBUG":
		return DEBUG, nil
	case "INFO":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	case "CRITICAL":
		return CRITICAL, nil
	case "FATAL":
		return FATAL, nil
	default:
		return OFF, fmt.Errorf("invalid log level %q", s)
	}
}

// KV is a single structured field attached to a log line.
type KV struct {
	Key string
	Val interface{}
}

func F(key string, val interface{}) KV { return KV{Key: key, Val: val} }

// sdParam renders a KV as an RFC 5424 structured-data parameter; every
// value is stringified since SD-PARAM-VALUE is textual on the wire.
func (kv KV) sdParam() rfc5424.SDParam {
	if s, ok := kv.Val.(string); ok {
		return rfc5424.SDParam{Name: kv.Key, Value: s}
	}
	return rfc5424.SDParam{Name: kv.Key, Value: fmt.Sprintf("%v", kv.Val)}
}

// sdID is this engine's structured-data enterprise ID, distinguishing
// its fields from any other SD-ELEMENT a downstream syslog collector
// might see on the same line.
const sdID = "aurora@0"

// Logger is a level-gated logger fanning each line out to every
// registered writer as a single RFC 5424 message. The zero value is
// not usable; use New.
type Logger struct {
	mtx      sync.Mutex
	level    Level
	writers  []io.Writer
	hostname string
	appname  string
}

// New builds a Logger writing at INFO level to w.
func New(w io.Writer) *Logger {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return &Logger{level: INFO, writers: []io.Writer{w}, hostname: host, appname: "aurora"}
}

// AddWriter fans future log lines out to an additional writer, for
// duplicating stderr to a file while keeping the original fd alive.
func (l *Logger) AddWriter(w io.Writer) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.writers = append(l.writers, w)
}

func (l *Logger) SetLevel(lvl Level) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.level = lvl
}

func (l *Logger) SetAppname(name string) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.appname = name
}

func (l *Logger) log(lvl Level, msg string, fields ...KV) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if lvl < l.level || l.level == OFF {
		return
	}
	m := rfc5424.Message{
		Priority:  lvl.priority(),
		Timestamp: time.Now().UTC(),
		Hostname:  l.hostname,
		AppName:   l.appname,
		Message:   []byte(msg),
	}
	if len(fields) > 0 {
		sds := make([]rfc5424.SDParam, len(fields))
		for i, f := range fields {
			sds[i] = f.sdParam()
		}
		m.StructuredData = []rfc5424.StructuredData{{ID: sdID, Parameters: sds}}
	}
	b, err := m.MarshalBinary()
	if err != nil {
		// The RFC5424 encoder only rejects a message on a malformed
		// field (an over-length hostname/appname); fall back to a
		// plain line rather than dropping it.
		b = []byte(fmt.Sprintf("%s %s %s %s", m.Timestamp.Format(time.RFC3339Nano), l.appname, lvl, msg))
	}
	for _, w := range l.writers {
		w.Write(b)
		io.WriteString(w, "\n")
	}
}

func (l *Logger) Debug(msg string, fields ...KV)    { l.log(DEBUG, msg, fields...) }
func (l *Logger) Info(msg string, fields ...KV)     { l.log(INFO, msg, fields...) }
func (l *Logger) Warn(msg string, fields ...KV)     { l.log(WARN, msg, fields...) }
func (l *Logger) Error(msg string, fields ...KV)    { l.log(ERROR, msg, fields...) }
func (l *Logger) Critical(msg string, fields ...KV) { l.log(CRITICAL, msg, fields...) }
func (l *Logger) Fatal(msg string, fields ...KV)    { l.log(FATAL, msg, fields...) }

// Discard is a Logger writing nowhere, useful as a test default.
func Discard() *Logger {
	return New(io.Discard)
}

// NewStderr builds a Logger writing to stderr, optionally duplicated
// to a file so output survives fd-level redirection of stderr by the
// caller's process supervisor.
func NewStderr(fileOverride string) (*Logger, error) {
	lgr := New(os.Stderr)
	if fileOverride != "" {
		fout, err := os.Create(fileOverride)
		if err != nil {
			return nil, err
		}
		lgr.AddWriter(fout)
	}
	return lgr, nil
}

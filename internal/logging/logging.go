// Package logging builds the process logger: info and above go to the
// system log, and with debug enabled everything is mirrored to stderr.
package logging

import (
	"io"
	"log/syslog"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures New.
type Options struct {
	Tag    string
	Debug  bool
	Stderr io.Writer
}

// New returns the logger and a function that flushes and closes its sinks.
// If the syslog daemon cannot be reached the system log sink is dropped;
// logging never fails the caller.
func New(opts Options) (*zap.Logger, func()) {
	var sink zapcore.WriteSyncer
	closeFn := func() {}
	if w, err := syslog.New(syslog.LOG_INFO|syslog.LOG_DAEMON, opts.Tag); err == nil {
		sink = zapcore.AddSync(w)
		closeFn = func() { _ = w.Close() }
	}

	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	log := build(sink, zapcore.AddSync(stderr), opts.Debug)
	return log, func() {
		_ = log.Sync()
		closeFn()
	}
}

func build(sysSink, stderr zapcore.WriteSyncer, debug bool) *zap.Logger {
	var cores []zapcore.Core
	if sysSink != nil {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(syslogEncoderConfig()), sysSink, zap.InfoLevel))
	}
	if debug {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleEncoderConfig()), zapcore.Lock(stderr), zap.DebugLevel))
	}
	if len(cores) == 0 {
		return zap.NewNop()
	}
	return zap.New(zapcore.NewTee(cores...))
}

// syslog stamps its own time and severity.
func syslogEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = ""
	cfg.LevelKey = ""
	cfg.CallerKey = ""
	cfg.StacktraceKey = ""
	return cfg
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

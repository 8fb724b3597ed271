package main

import (
	"context"
	"io"
	"strings"

	"github.com/goliatone/go-logger/glog"

	"github.com/jaskirat05/graviton-bridge"
	"github.com/jaskirat05/graviton-bridge/config"
)

// glogLogger adapts a go-logger logger onto bridge.Logger.
type glogLogger struct {
	logger glog.Logger
}

var (
	_ bridge.Logger       = glogLogger{}
	_ bridge.FieldsLogger = glogLogger{}
)

func newLogger(cfg config.LogConfig, w io.Writer) bridge.Logger {
	level := strings.ToLower(cfg.Level)
	if strings.EqualFold(cfg.Format, "json") {
		return glogLogger{logger: glog.NewLogger(
			glog.WithWriter(w),
			glog.WithLoggerTypeJSON(),
			glog.WithLevel(level),
		)}
	}
	return glogLogger{logger: glog.NewLogger(
		glog.WithWriter(w),
		glog.WithLevel(level),
	)}
}

func (l glogLogger) Trace(msg string, args ...any) { l.logger.Trace(msg, args...) }
func (l glogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l glogLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l glogLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l glogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }
func (l glogLogger) Fatal(msg string, args ...any) { l.logger.Fatal(msg, args...) }

func (l glogLogger) WithContext(ctx context.Context) bridge.Logger {
	if l.logger == nil {
		return bridge.NewFmtLogger(nil).WithContext(ctx)
	}
	return glogLogger{logger: l.logger.WithContext(ctx)}
}

func (l glogLogger) WithFields(fields map[string]any) bridge.Logger {
	if l.logger == nil {
		return bridge.NewFmtLogger(nil).WithFields(fields)
	}
	if fl, ok := l.logger.(glog.FieldsLogger); ok {
		return glogLogger{logger: fl.WithFields(fields)}
	}
	return l
}

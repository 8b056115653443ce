/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package logging

import (
	"fmt"

	"github.com/rs/zerolog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type zerologLogger struct {
	logger zerolog.Logger
}

// Zerolog adapts a zerolog.Logger.  Key/value pairs become event fields.
func Zerolog(logger zerolog.Logger) Logger {
	return &zerologLogger{logger: logger}
}

func (zl *zerologLogger) Log(level LogLevel, text string, args ...interface{}) {
	var event *zerolog.Event
	switch level {
	case LevelDebug:
		event = zl.logger.Debug()
	case LevelInfo:
		event = zl.logger.Info()
	case LevelWarn:
		event = zl.logger.Warn()
	default:
		event = zl.logger.Error()
	}

	for i := 0; i < len(args); i += 2 {
		key := fmt.Sprint(args[i])
		if i+1 < len(args) {
			event = event.Interface(key, args[i+1])
		} else {
			event = event.Str(key, "%MISSING%")
		}
	}
	event.Msg(text)
}

type zapLogger struct {
	logger *zap.Logger
}

// Zap adapts a *zap.Logger.  Key/value pairs become zap.Any fields.
func Zap(logger *zap.Logger) Logger {
	return &zapLogger{logger: logger}
}

func (zl *zapLogger) Log(level LogLevel, text string, args ...interface{}) {
	fields := make([]zap.Field, 0, (len(args)+1)/2)
	for i := 0; i < len(args); i += 2 {
		key := fmt.Sprint(args[i])
		if i+1 < len(args) {
			fields = append(fields, zap.Any(key, args[i+1]))
		} else {
			fields = append(fields, zap.String(key, "%MISSING%"))
		}
	}

	switch level {
	case LevelDebug:
		zl.logger.Debug(text, fields...)
	case LevelInfo:
		zl.logger.Info(text, fields...)
	case LevelWarn:
		zl.logger.Warn(text, fields...)
	default:
		zl.logger.Error(text, fields...)
	}
}

// ZerologLevel maps a LogLevel onto the zerolog level of the same name.
func ZerologLevel(level LogLevel) zerolog.Level {
	switch level {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// ZapLevel maps a LogLevel onto the zap level of the same name.
func ZapLevel(level LogLevel) zapcore.Level {
	switch level {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelInfo:
		return zapcore.InfoLevel
	case LevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

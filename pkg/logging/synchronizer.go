/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package logging

import "sync"

type synchronizedLogger struct {
	logger Logger
	mutex  sync.Mutex
}

func (sl *synchronizedLogger) Log(level LogLevel, text string, args ...interface{}) {
	sl.mutex.Lock()
	defer sl.mutex.Unlock()
	sl.logger.Log(level, text, args...)
}

// Synchronize serializes calls to logger, for loggers shared between the
// loop goroutine and the recorder goroutines.
func Synchronize(logger Logger) Logger {
	return &synchronizedLogger{
		logger: logger,
	}
}

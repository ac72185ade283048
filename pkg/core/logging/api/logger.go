/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package api defines the contract between the logging facade and the
// logger providers (modlog, zaplog).
package api

// Level is a log severity. Lower values are more severe.
type Level int

// Log levels.
const (
	CRITICAL Level = iota
	ERROR
	WARNING
	INFO
	DEBUG
)

var levelNames = [...]string{"CRITICAL", "ERROR", "WARNING", "INFO", "DEBUG"}

// String returns the upper case name of the level
func (l Level) String() string {
	if l < CRITICAL || l > DEBUG {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// Levels returns every level, most severe first
func Levels() []Level {
	return []Level{CRITICAL, ERROR, WARNING, INFO, DEBUG}
}

// Logger is a module logger. Fatal and Fatalf exit the process after
// logging; Panic and Panicf panic with the message.
type Logger interface {
	Fatal(v ...interface{})
	Fatalf(format string, v ...interface{})
	Panic(v ...interface{})
	Panicf(format string, v ...interface{})

	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
}

// LoggerProvider creates the logger for a module
type LoggerProvider interface {
	GetLogger(module string) Logger
}

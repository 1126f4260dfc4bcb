// Copyright (C) 2025 Josh Simonot
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
)

// Logger writes "[prefix] LEVEL: message" lines to the shared output.
type Logger struct {
	prefix string
	logger *log.Logger
}

// swapWriter lets every Logger follow the current log file, including
// loggers created before Init and after the file is cleared.
type swapWriter struct {
	mu sync.RWMutex
	w  io.Writer
}

func (s *swapWriter) Write(p []byte) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.w.Write(p)
}

func (s *swapWriter) set(w io.Writer) {
	s.mu.Lock()
	s.w = w
	s.mu.Unlock()
}

var (
	out     = &swapWriter{w: os.Stdout}
	logFile *os.File
	logPath string
	once    sync.Once
	debug   atomic.Bool
)

// Init tees all loggers to stdout and the file at path.
// Debug starts enabled if the DEBUG env var is set.
func Init(path string) error {
	var err error
	once.Do(func() {
		if err = os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return
		}
		logFile, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return
		}
		logPath = path
		out.set(io.MultiWriter(os.Stdout, logFile))
		debug.Store(os.Getenv("DEBUG") != "")
	})
	return err
}

// Close points output back at stdout and closes the log file.
func Close() {
	out.set(os.Stdout)
	if logFile != nil {
		logFile.Close()
	}
}

func EnableDebug(on bool) { debug.Store(on) }

func IsDebug() bool { return debug.Load() }

func New(prefix string) *Logger {
	return &Logger{
		prefix: prefix,
		logger: log.New(out, "", log.LstdFlags),
	}
}

// emit writes one line, optionally tagged with the file:line that called
// the public method. It must only be called from those methods.
func (l *Logger) emit(level string, withCaller bool, fmtstr string, v []any) string {
	msg := fmt.Sprintf(fmtstr, v...)
	if withCaller {
		if _, file, line, ok := runtime.Caller(2); ok {
			l.logger.Printf("[%s] %s: (%s:%d) %s", l.prefix, level, filepath.Base(file), line, msg)
			return msg
		}
	}
	l.logger.Printf("[%s] %s: %s", l.prefix, level, msg)
	return msg
}

func (l *Logger) Info(fmtstr string, v ...any) { l.emit("INFO", false, fmtstr, v) }

func (l *Logger) Warn(fmtstr string, v ...any) { l.emit("WARN", false, fmtstr, v) }

func (l *Logger) Error(fmtstr string, v ...any) { l.emit("ERROR", true, fmtstr, v) }

// Fatal logs and panics, so service.Start can report it and shut down.
func (l *Logger) Fatal(fmtstr string, v ...any) {
	panic(l.emit("FATAL", true, fmtstr, v))
}

func (l *Logger) Debug(fmtstr string, v ...any) {
	if !debug.Load() {
		return
	}
	l.emit("DEBUG", false, fmtstr, v)
}

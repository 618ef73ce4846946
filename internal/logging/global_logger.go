// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package logging configures the shared logrus instance every retrieval
// engine package logs through: a custom single-line formatter carrying a
// session id, and optional rotation to a local file via lumberjack.
// Grounded on the teacher gateway's internal/logging package, generalized
// from "request id" to "session id" and with the gin-specific writer
// wiring removed (the query pipeline has no HTTP surface; spec.md §1 names
// HTTP gateway shims as an external, out-of-scope collaborator).
package logging

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	setupOnce sync.Once
	writerMu  sync.Mutex
	logWriter *lumberjack.Logger
)

// Fields is a shorthand for structured log fields, matching the teacher's
// idiom of passing log.Fields{...} into WithFields.
type Fields = log.Fields

// Formatter renders a single log entry:
// [2026-07-30 20:14:04] [info ] [session:a1b2c3d4] [hasher.go:42] message
type Formatter struct{}

// Format implements logrus.Formatter.
func (f *Formatter) Format(entry *log.Entry) ([]byte, error) {
	var buf *bytes.Buffer
	if entry.Buffer != nil {
		buf = entry.Buffer
	} else {
		buf = &bytes.Buffer{}
	}

	ts := entry.Time.Format("2006-01-02 15:04:05")
	msg := strings.TrimRight(entry.Message, "\r\n")

	sess := "--------"
	if id, ok := entry.Data["session_id"].(string); ok && id != "" {
		sess = id
	}

	level := entry.Level.String()
	if level == "warning" {
		level = "warn"
	}
	levelStr := fmt.Sprintf("%-5s", level)

	var line string
	if entry.Caller != nil {
		line = fmt.Sprintf("[%s] [%s] [session:%s] [%s:%d] %s",
			ts, levelStr, sess, filepath.Base(entry.Caller.File), entry.Caller.Line, msg)
	} else {
		line = fmt.Sprintf("[%s] [%s] [session:%s] %s", ts, levelStr, sess, msg)
	}

	if len(entry.Data) > 1 || (len(entry.Data) == 1 && entry.Data["session_id"] == nil) {
		line += " |"
		for k, v := range entry.Data {
			if k == "session_id" {
				continue
			}
			line += fmt.Sprintf(" %s=%v", k, v)
		}
	}
	line += "\n"

	buf.WriteString(line)
	return buf.Bytes(), nil
}

// Setup configures the shared logrus instance once per process.
func Setup() {
	setupOnce.Do(func() {
		log.SetOutput(os.Stdout)
		log.SetReportCaller(true)
		log.SetFormatter(&Formatter{})
	})
}

// ConfigureOutput switches the global log destination between a rotating
// file under dir and stdout.
func ConfigureOutput(toFile bool, dir string, maxSizeMB int) error {
	Setup()

	writerMu.Lock()
	defer writerMu.Unlock()

	if !toFile {
		if logWriter != nil {
			_ = logWriter.Close()
			logWriter = nil
		}
		log.SetOutput(os.Stdout)
		return nil
	}

	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("logging: create log dir: %w", err)
	}
	if logWriter != nil {
		_ = logWriter.Close()
	}
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	logWriter = &lumberjack.Logger{
		Filename: filepath.Join(dir, "her.log"),
		MaxSize:  maxSizeMB,
		Compress: true,
	}
	log.SetOutput(logWriter)
	return nil
}

// Close releases the rotating file writer, if any. Safe to call even when
// logging to stdout.
func Close() error {
	writerMu.Lock()
	defer writerMu.Unlock()
	if logWriter == nil {
		return nil
	}
	err := logWriter.Close()
	logWriter = nil
	return err
}

// WithSession returns a logger entry pre-populated with session_id, the
// one field Formatter always surfaces in its bracketed prefix.
func WithSession(sessionID string) *log.Entry {
	return log.WithField("session_id", sessionID)
}

// Package logging provides leveled key=value console logging for the task
// layer. The durable store is the source of truth for task state; this
// package only gives operators real-time visibility into lifecycle events,
// channel management and event application.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents log severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// levelPriority maps levels to numeric priority for filtering.
var levelPriority = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// Logger writes structured log lines to a single writer.
type Logger struct {
	mu        sync.Mutex
	output    io.Writer
	minLevel  Level
	component string
}

// New creates a new Logger writing to stdout at INFO level.
func New() *Logger {
	return &Logger{
		output:   os.Stdout,
		minLevel: LevelInfo,
	}
}

// WithComponent returns a new logger scoped to the given component name.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		output:    l.output,
		minLevel:  l.minLevel,
		component: component,
	}
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.minLevel = level
}

// SetOutput sets the output writer (default: stdout).
func (l *Logger) SetOutput(w io.Writer) {
	l.output = w
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(LevelDebug, msg, fields...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(LevelWarn, msg, fields...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(LevelError, msg, fields...)
}

// formatFields formats a map of fields as key=value pairs.
func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	var parts []string
	for k, v := range fields {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return " " + strings.Join(parts, " ")
}

// log writes a log entry: LEVEL TIMESTAMP [component] message key=value ...
func (l *Logger) log(level Level, msg string, fields ...map[string]interface{}) {
	if levelPriority[level] < levelPriority[l.minLevel] {
		return
	}

	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")

	var fieldStr string
	if len(fields) > 0 && fields[0] != nil {
		fieldStr = formatFields(fields[0])
	}

	var line string
	if l.component != "" {
		line = fmt.Sprintf("%-5s %s [%s] %s%s\n", level, timestamp, l.component, msg, fieldStr)
	} else {
		line = fmt.Sprintf("%-5s %s %s%s\n", level, timestamp, msg, fieldStr)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.output.Write([]byte(line))
}

// --- Task-lifecycle logging helpers ---
// Called by the registry, channel manager and workers so operators see a
// consistent vocabulary across processes.

// TaskQueued logs the enqueue of a new task.
func (l *Logger) TaskQueued(taskID, name, owner string) {
	l.Info("task_queued", map[string]interface{}{
		"task":  taskID,
		"name":  name,
		"owner": owner,
	})
}

// TaskProgress logs a progress update (debug level, high volume).
func (l *Logger) TaskProgress(taskID string, rate float64) {
	l.Debug("task_progress", map[string]interface{}{
		"task": taskID,
		"rate": rate,
	})
}

// TaskDone logs a terminal result event.
func (l *Logger) TaskDone(taskID string, failed bool) {
	fields := map[string]interface{}{"task": taskID}
	if failed {
		l.Error("task_error", fields)
	} else {
		l.Info("task_done", fields)
	}
}

// TaskCanceled logs a cancellation acknowledgement.
func (l *Logger) TaskCanceled(taskID string, requeue bool) {
	l.Info("task_canceled", map[string]interface{}{
		"task":    taskID,
		"requeue": requeue,
	})
}

// ChannelOpened logs the creation of a publish or consume channel.
func (l *Logger) ChannelOpened(kind, queueID string, consumerNo int) {
	fields := map[string]interface{}{
		"kind":  kind,
		"queue": queueID,
	}
	if consumerNo > 0 {
		fields["consumer"] = consumerNo
	}
	l.Info("channel_opened", fields)
}

// WorkerDispatch logs a worker picking up a task.
func (l *Logger) WorkerDispatch(workerID, taskID, name string) {
	l.Info("worker_dispatch", map[string]interface{}{
		"worker": workerID,
		"task":   taskID,
		"name":   name,
	})
}

// EventApplied logs the application of a bus event to the registry.
func (l *Logger) EventApplied(kind, taskID string) {
	l.Debug("event_applied", map[string]interface{}{
		"kind": kind,
		"task": taskID,
	})
}

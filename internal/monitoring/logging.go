// Package monitoring provides structured logging for the netident daemon.
// It implements leveled logging with configurable output destinations and
// keeps a bounded in-memory ring of recent entries so the management API
// can surface the latest activity without reading log files.
package monitoring

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LogLevel represents the severity level of a log entry.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota // Debug level - debugging information
	LogLevelInfo                  // Info level - general information
	LogLevelWarn                  // Warn level - warning messages
	LogLevelError                 // Error level - error conditions
)

// String returns the string representation of a log level.
func (ll LogLevel) String() string {
	switch ll {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LogEntry represents a single log entry with metadata.
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"` // When the log entry was created
	Level     LogLevel               `json:"level"`     // Log level of the entry
	Component string                 `json:"component"` // Subsystem that generated the log
	Message   string                 `json:"message"`   // Log message content
	Metadata  map[string]interface{} `json:"metadata"`  // Additional metadata
}

// LogConfig represents configuration options for the logging system.
type LogConfig struct {
	LogLevel    LogLevel `json:"log_level"`     // Minimum log level to record
	LogToFile   bool     `json:"log_to_file"`   // Whether to write logs to file
	LogToStdout bool     `json:"log_to_stdout"` // Whether to write logs to stdout
	LogFile     string   `json:"log_file"`      // Path of the log file
	BufferSize  int      `json:"buffer_size"`   // Number of recent entries kept in memory
}

// LogManager manages logging for the netident daemon. It writes formatted
// entries to the configured destinations and retains the most recent
// entries in a fixed-size in-memory buffer.
type LogManager struct {
	config  LogConfig
	logger  *log.Logger
	logFile *os.File
	mutex   sync.RWMutex
	buffer  []LogEntry // ring of recent entries, oldest first
}

// NewLogManager creates a new log manager with default configuration:
// info level, stdout only, and a 500-entry in-memory buffer.
// Returns a pointer to the newly created LogManager.
func NewLogManager() *LogManager {
	return NewLogManagerWithConfig(LogConfig{
		LogLevel:    LogLevelInfo,
		LogToFile:   false,
		LogToStdout: true,
		BufferSize:  500,
	})
}

// NewLogManagerWithConfig creates a new log manager with custom configuration.
// This allows fine-tuning of logging behavior for specific deployments.
// Returns a pointer to the newly created LogManager.
func NewLogManagerWithConfig(config LogConfig) *LogManager {
	if config.BufferSize <= 0 {
		config.BufferSize = 500
	}

	manager := &LogManager{
		config: config,
		buffer: make([]LogEntry, 0, config.BufferSize),
	}

	var writers []io.Writer
	if config.LogToStdout {
		writers = append(writers, os.Stdout)
	}
	if config.LogToFile && config.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(config.LogFile), 0755); err != nil {
			log.Printf("Failed to create log directory: %v", err)
		} else {
			file, err := os.OpenFile(config.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				log.Printf("Failed to open log file %s: %v", config.LogFile, err)
			} else {
				writers = append(writers, file)
				manager.logFile = file
			}
		}
	}

	var writer io.Writer
	switch len(writers) {
	case 0:
		writer = io.Discard
	case 1:
		writer = writers[0]
	default:
		writer = io.MultiWriter(writers...)
	}

	manager.logger = log.New(writer, "", log.LstdFlags)
	return manager
}

// Log writes a log entry with the specified level, component, and message.
// Entries below the configured minimum level are discarded. The entry is
// appended to the in-memory buffer before being written out.
func (lm *LogManager) Log(level LogLevel, component, message string, metadata map[string]interface{}) {
	if level < lm.config.LogLevel {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Component: component,
		Message:   message,
		Metadata:  metadata,
	}

	lm.addToBuffer(entry)
	lm.logger.Print(lm.formatMessage(entry))
}

// Debug logs a debug-level message for the given component.
func (lm *LogManager) Debug(component, message string) {
	lm.Log(LogLevelDebug, component, message, nil)
}

// Info logs an info-level message for the given component.
func (lm *LogManager) Info(component, message string) {
	lm.Log(LogLevelInfo, component, message, nil)
}

// Warn logs a warning-level message for the given component.
func (lm *LogManager) Warn(component, message string) {
	lm.Log(LogLevelWarn, component, message, nil)
}

// Error logs an error-level message for the given component.
func (lm *LogManager) Error(component, message string) {
	lm.Log(LogLevelError, component, message, nil)
}

// RecentLogs returns the most recent log entries from the in-memory buffer,
// oldest first. A count of zero or less returns the whole buffer.
func (lm *LogManager) RecentLogs(count int) []LogEntry {
	lm.mutex.RLock()
	defer lm.mutex.RUnlock()

	if count <= 0 || count > len(lm.buffer) {
		count = len(lm.buffer)
	}

	start := len(lm.buffer) - count
	result := make([]LogEntry, count)
	copy(result, lm.buffer[start:])
	return result
}

// LogsByLevel returns up to count recent entries of exactly the given level,
// oldest first.
func (lm *LogManager) LogsByLevel(level LogLevel, count int) []LogEntry {
	lm.mutex.RLock()
	defer lm.mutex.RUnlock()

	var filtered []LogEntry
	for i := len(lm.buffer) - 1; i >= 0 && len(filtered) < count; i-- {
		if lm.buffer[i].Level == level {
			filtered = append([]LogEntry{lm.buffer[i]}, filtered...)
		}
	}
	return filtered
}

// Close releases the log file handle if one is open.
func (lm *LogManager) Close() error {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	if lm.logFile != nil {
		err := lm.logFile.Close()
		lm.logFile = nil
		return err
	}
	return nil
}

// addToBuffer appends an entry to the buffer, evicting the oldest entry
// when the buffer is full.
func (lm *LogManager) addToBuffer(entry LogEntry) {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	if len(lm.buffer) >= lm.config.BufferSize {
		lm.buffer = lm.buffer[1:]
	}
	lm.buffer = append(lm.buffer, entry)
}

// formatMessage renders a log entry as a single output line.
func (lm *LogManager) formatMessage(entry LogEntry) string {
	if len(entry.Metadata) > 0 {
		return fmt.Sprintf("[%s] %s: %s %v", entry.Level.String(), entry.Component, entry.Message, entry.Metadata)
	}
	return fmt.Sprintf("[%s] %s: %s", entry.Level.String(), entry.Component, entry.Message)
}

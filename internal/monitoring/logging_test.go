package monitoring

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogManager(t *testing.T) {
	t.Run("should create log manager with default configuration", func(t *testing.T) {
		lm := NewLogManager()
		defer lm.Close()

		assert.NotNil(t, lm)
		assert.Equal(t, LogLevelInfo, lm.config.LogLevel)
		assert.False(t, lm.config.LogToFile)
		assert.True(t, lm.config.LogToStdout)
		assert.Equal(t, 500, lm.config.BufferSize)
	})
}

func TestNewLogManagerWithConfig(t *testing.T) {
	t.Run("should create log manager with custom configuration", func(t *testing.T) {
		config := LogConfig{
			LogLevel:    LogLevelDebug,
			LogToFile:   false,
			LogToStdout: false,
			BufferSize:  10,
		}

		lm := NewLogManagerWithConfig(config)
		defer lm.Close()

		assert.NotNil(t, lm)
		assert.Equal(t, LogLevelDebug, lm.config.LogLevel)
		assert.Equal(t, 10, lm.config.BufferSize)
	})

	t.Run("should fall back to default buffer size", func(t *testing.T) {
		lm := NewLogManagerWithConfig(LogConfig{BufferSize: 0})
		defer lm.Close()

		assert.Equal(t, 500, lm.config.BufferSize)
	})
}

func TestLogLevel_String(t *testing.T) {
	t.Run("should return correct string representations", func(t *testing.T) {
		assert.Equal(t, "DEBUG", LogLevelDebug.String())
		assert.Equal(t, "INFO", LogLevelInfo.String())
		assert.Equal(t, "WARN", LogLevelWarn.String())
		assert.Equal(t, "ERROR", LogLevelError.String())
	})

	t.Run("should return UNKNOWN for invalid log level", func(t *testing.T) {
		invalidLevel := LogLevel(999)
		assert.Equal(t, "UNKNOWN", invalidLevel.String())
	})
}

func TestLogManager_Log(t *testing.T) {
	newQuietManager := func(level LogLevel) *LogManager {
		return NewLogManagerWithConfig(LogConfig{
			LogLevel:    level,
			LogToStdout: false,
			BufferSize:  100,
		})
	}

	t.Run("should record entries in the buffer", func(t *testing.T) {
		lm := newQuietManager(LogLevelInfo)
		defer lm.Close()

		lm.Info("network", "profile saved")
		lm.Error("wireguard", "activation failed")

		recent := lm.RecentLogs(0)
		require.Len(t, recent, 2)
		assert.Equal(t, "network", recent[0].Component)
		assert.Equal(t, "profile saved", recent[0].Message)
		assert.Equal(t, LogLevelError, recent[1].Level)
	})

	t.Run("should discard entries below the minimum level", func(t *testing.T) {
		lm := newQuietManager(LogLevelWarn)
		defer lm.Close()

		lm.Debug("network", "probe output")
		lm.Info("network", "profile saved")
		lm.Warn("network", "nmcli slow to respond")

		recent := lm.RecentLogs(0)
		require.Len(t, recent, 1)
		assert.Equal(t, LogLevelWarn, recent[0].Level)
	})

	t.Run("should evict the oldest entry when the buffer is full", func(t *testing.T) {
		lm := NewLogManagerWithConfig(LogConfig{
			LogLevel:    LogLevelInfo,
			LogToStdout: false,
			BufferSize:  3,
		})
		defer lm.Close()

		for i := 0; i < 5; i++ {
			lm.Info("test", fmt.Sprintf("message %d", i))
		}

		recent := lm.RecentLogs(0)
		require.Len(t, recent, 3)
		assert.Equal(t, "message 2", recent[0].Message)
		assert.Equal(t, "message 4", recent[2].Message)
	})
}

func TestLogManager_RecentLogs(t *testing.T) {
	t.Run("should return the most recent entries oldest first", func(t *testing.T) {
		lm := NewLogManagerWithConfig(LogConfig{
			LogLevel:    LogLevelInfo,
			LogToStdout: false,
			BufferSize:  100,
		})
		defer lm.Close()

		for i := 0; i < 10; i++ {
			lm.Info("test", fmt.Sprintf("message %d", i))
		}

		recent := lm.RecentLogs(3)
		require.Len(t, recent, 3)
		assert.Equal(t, "message 7", recent[0].Message)
		assert.Equal(t, "message 9", recent[2].Message)
	})
}

func TestLogManager_LogsByLevel(t *testing.T) {
	t.Run("should filter entries by level", func(t *testing.T) {
		lm := NewLogManagerWithConfig(LogConfig{
			LogLevel:    LogLevelDebug,
			LogToStdout: false,
			BufferSize:  100,
		})
		defer lm.Close()

		lm.Info("test", "info one")
		lm.Error("test", "error one")
		lm.Info("test", "info two")
		lm.Error("test", "error two")

		errs := lm.LogsByLevel(LogLevelError, 10)
		require.Len(t, errs, 2)
		assert.Equal(t, "error one", errs[0].Message)
		assert.Equal(t, "error two", errs[1].Message)
	})
}

func TestLogManager_FileOutput(t *testing.T) {
	t.Run("should write entries to the configured log file", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "logs", "netident.log")

		lm := NewLogManagerWithConfig(LogConfig{
			LogLevel:    LogLevelInfo,
			LogToFile:   true,
			LogToStdout: false,
			LogFile:     logFile,
			BufferSize:  10,
		})

		lm.Info("backup", "export written")
		require.NoError(t, lm.Close())

		data, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(data), "[INFO] backup: export written")
	})
}

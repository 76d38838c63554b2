package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grandstand-travel/backoffice/internal/config"
)

func TestNew(t *testing.T) {
	t.Run("LevelFromConfig", func(t *testing.T) {
		logger := New(config.ServerConfig{LogLevel: "debug"})
		assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
		assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
	})

	t.Run("InvalidLevelFallsBackToInfo", func(t *testing.T) {
		logger := New(config.ServerConfig{LogLevel: "chatty"})
		assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	})

	t.Run("WritesRotatingFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "backoffice.log")
		logger := New(config.ServerConfig{
			LogLevel:      "info",
			LogFile:       path,
			LogMaxSizeMB:  1,
			LogMaxBackups: 1,
			LogMaxAgeDays: 1,
		})

		logger.WithField("booking_id", "b-1").Info("booking created")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"booking_id":"b-1"`)
	})
}

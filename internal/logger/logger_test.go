package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"rockwatch/config"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: &config.LoggingConfig{
				Level:       "info",
				LogToStdout: true,
			},
			wantErr: false,
		},
		{
			name:    "nil config",
			cfg:     nil,
			wantErr: true,
		},
		{
			name: "invalid level",
			cfg: &config.LoggingConfig{
				Level:       "invalid",
				LogToStdout: true,
			},
			wantErr: false, // defaults to info level
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, logger)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, logger)
			}
		})
	}
}

func TestNewLoggerFileOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	logger, err := NewLogger(&config.LoggingConfig{
		Level:     "debug",
		Directory: dir,
		LogToFile: true,
		MaxSize:   1,
	})
	assert.NoError(t, err)
	assert.NotNil(t, logger)

	logger.Info("feed connected", "endpoint", "ws://localhost:8000/ws/live")
	logger.Debug("frame received", "fields", 13)

	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("Expected log directory to be created: %v", err)
	}
}

func TestLoggerMethods(t *testing.T) {
	logger, err := NewLogger(&config.LoggingConfig{
		Level:       "debug",
		LogToStdout: true,
	})
	assert.NoError(t, err)

	// Should not panic
	logger.Debug("debug message", "key", "value")
	logger.Info("info message", "key", "value")
	logger.Error("error message", "key", "value")
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_HappyPath(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config_test")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	tempConfigsSubDir := filepath.Join(tempDir, "configs")
	err = os.Mkdir(tempConfigsSubDir, 0755)
	require.NoError(t, err)

	testAppName := "TestMonitor"
	testPort := 9090
	testLogLevel := "debug"
	testInterval := 2 * time.Second

	envContent := fmt.Sprintf(
		"APP_NAME=%s\nSERVER_PORT=%d\nLOG_LEVEL=%s\nPOLLER_INTERVAL=%s\nUPSTREAM_API_KEY=secret\n",
		testAppName, testPort, testLogLevel, testInterval,
	)
	envFilePath := filepath.Join(tempConfigsSubDir, "test_happy.env")
	err = os.WriteFile(envFilePath, []byte(envContent), 0644)
	require.NoError(t, err)

	originalWD, err := os.Getwd()
	require.NoError(t, err)
	defer func() {
		_ = os.Chdir(originalWD)
	}()

	err = os.Chdir(tempDir)
	require.NoError(t, err)

	cfg, err := LoadConfig("test_happy")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, testAppName, cfg.Application.Name)
	assert.Equal(t, testPort, cfg.Server.Port)
	assert.Equal(t, testLogLevel, cfg.Logging.Level)
	assert.Equal(t, testInterval, cfg.Poller.Interval)
	assert.Equal(t, "secret", cfg.Upstream.APIKey)

	// Defaults fill the rest
	assert.Equal(t, "development", cfg.Application.Env)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 24*time.Hour, cfg.Poller.DefaultWindow)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoDB.URI)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 10, cfg.AlertPool.Size)
	assert.Empty(t, cfg.Kafka.AlertTopic)
}

func TestLoadConfig_ValidationFailures(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config_test")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	tempConfigsSubDir := filepath.Join(tempDir, "configs")
	require.NoError(t, os.Mkdir(tempConfigsSubDir, 0755))

	originalWD, err := os.Getwd()
	require.NoError(t, err)
	defer func() {
		_ = os.Chdir(originalWD)
	}()
	require.NoError(t, os.Chdir(tempDir))

	tests := []struct {
		name       string
		envContent string
		wantSubstr string
	}{
		{
			name:       "missing upstream api key",
			envContent: "UPSTREAM_API_KEY=\n",
			wantSubstr: "UPSTREAM_API_KEY",
		},
		{
			name:       "invalid server port",
			envContent: "UPSTREAM_API_KEY=secret\nSERVER_PORT=0\n",
			wantSubstr: "SERVER_PORT",
		},
		{
			name:       "invalid poller interval",
			envContent: "UPSTREAM_API_KEY=secret\nPOLLER_INTERVAL=0s\n",
			wantSubstr: "POLLER_INTERVAL",
		},
		{
			name:       "invalid alert pool size",
			envContent: "UPSTREAM_API_KEY=secret\nALERT_POOL_SIZE=0\n",
			wantSubstr: "ALERT_POOL_SIZE",
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name := fmt.Sprintf("test_invalid_%d", i)
			envFilePath := filepath.Join(tempConfigsSubDir, name+".env")
			require.NoError(t, os.WriteFile(envFilePath, []byte(tt.envContent), 0644))

			_, err := LoadConfig(name)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantSubstr)
		})
	}
}

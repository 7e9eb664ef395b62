package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestMustLoad(t *testing.T) {
	t.Run("Missing keys fall back to defaults", func(t *testing.T) {
		// Given: a config that only sets the log level
		path := writeConfig(t, "log-level: debug\n")

		// When: it is loaded
		conf := MustLoad(path)

		// Then: every other field has its default
		assert.Equal(t, "debug", conf.LogLevel)
		assert.Equal(t, "9090", conf.HTTPPort)
		assert.Equal(t, "9091", conf.SocketPort)
		assert.Equal(t, "localhost:6379", conf.Redis.GetRedisAddr())
		assert.Equal(t, 500*time.Millisecond, conf.Game.AIDelay)
		assert.Equal(t, 800*time.Millisecond, conf.Game.FlipBackDelay)
		assert.Equal(t, 24*time.Hour, conf.Game.SessionTTL)
		assert.Equal(t, "medium", conf.Game.Difficulty)
	})

	t.Run("File values win over defaults", func(t *testing.T) {
		path := writeConfig(t, `
redis:
  host: cache
  port: "6380"
game:
  ai-delay: 1s
  difficulty: hard
`)

		conf := MustLoad(path)

		assert.Equal(t, "cache:6380", conf.Redis.GetRedisAddr())
		assert.Equal(t, time.Second, conf.Game.AIDelay)
		assert.Equal(t, "hard", conf.Game.Difficulty)
	})

	t.Run("Missing file panics", func(t *testing.T) {
		assert.Panics(t, func() {
			MustLoad(filepath.Join(t.TempDir(), "absent.yml"))
		})
	})
}

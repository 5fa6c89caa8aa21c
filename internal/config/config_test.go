package config

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
storage:
  driver: postgres
  host: db.local
  port: 5433
history:
  max_depth: 10
logship:
  url: ws://localhost:9000/logs
  max_backoff: 5s
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, 5433, cfg.Storage.Port)
	assert.Equal(t, 10, cfg.History.GetMaxDepth())
	assert.Equal(t, "@every 30s", cfg.Autosave.Schedule, "untouched sections keep defaults")
	assert.True(t, cfg.Logship.IsEnabled())

	client := cfg.Logship.Client()
	assert.Equal(t, 500*time.Millisecond, client.InitialBackoff)
	assert.Equal(t, 5*time.Second, client.MaxBackoff)
	require.NoError(t, cfg.Validate())
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage: [unclosed"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Sketch.Color = "#ff0000"
	cfg.Autosave.Schedule = ""
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "#ff0000", loaded.Sketch.Color)
	assert.Equal(t, "", loaded.Autosave.Schedule)
}

func TestPathHonoursEnv(t *testing.T) {
	t.Setenv(EnvConfigPath, "/tmp/custom.yaml")
	assert.Equal(t, "/tmp/custom.yaml", Path())

	t.Setenv(EnvConfigPath, "")
	assert.Equal(t, filepath.Join("blockpad", "config.yaml"), filepath.Join(filepath.Base(filepath.Dir(Path())), filepath.Base(Path())))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad driver", func(c *Config) { c.Storage.Driver = "oracle" }, "storage.driver"},
		{"bad port", func(c *Config) { c.Storage.Port = 70000 }, "storage.port"},
		{"history too shallow", func(c *Config) { c.History.MaxDepth = 1 }, "history.max_depth"},
		{"bad color", func(c *Config) { c.Sketch.Color = "blue" }, "sketch.color"},
		{"bad duration", func(c *Config) { c.Logship.MaxBackoff = "soon" }, "logship.max_backoff"},
		{"negative rate", func(c *Config) { c.Logship.UploadRate = -1 }, "logship.upload_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestViewerGestureFallsBackPerField(t *testing.T) {
	tests := []struct {
		name    string
		timeout string
		want    time.Duration
	}{
		{"empty", "", 300 * time.Millisecond},
		{"invalid", "later", 300 * time.Millisecond},
		{"custom", "450ms", 450 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ViewerConfig{MaxScaleFactor: 8, DoubleTapTimeout: tt.timeout}
			g := v.Gesture()
			assert.Equal(t, tt.want, g.DoubleTapTimeout)
			assert.Equal(t, 8.0, g.MaxScaleFactor)
			assert.Equal(t, 0.5, g.MinScaleHeadroom)
		})
	}
}

func TestSketchStyle(t *testing.T) {
	style := SketchConfig{StrokeWidth: 3, Color: "#fff"}.Style()
	assert.Equal(t, 3.0, style.Width)
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, style.Color)

	style = SketchConfig{Color: "nope"}.Style()
	assert.Equal(t, 6.0, style.Width)
	assert.Equal(t, color.Black, style.Color)
}

func TestStoragePasswordFromEnv(t *testing.T) {
	t.Setenv("BLOCKPAD_TEST_PW", "s3cret")
	assert.Equal(t, "s3cret", StorageConfig{PasswordEnv: "BLOCKPAD_TEST_PW"}.GetPassword())
	assert.Equal(t, "", StorageConfig{}.GetPassword())
	assert.Equal(t, "sqlite", StorageConfig{}.GetDriver())
}

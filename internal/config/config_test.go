package config_test

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpromonet/gin-yolo3/internal/config"
	"github.com/mpromonet/gin-yolo3/internal/models"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewDefaultConfig(t *testing.T) {
	cfg := config.NewDefaultConfig()

	assert.Equal(t, 320, cfg.Width)
	assert.Equal(t, 320, cfg.Height)
	assert.Equal(t, float32(0.5), cfg.Threshold)
	assert.Equal(t, float32(0.5), cfg.NMSThreshold)
	assert.True(t, cfg.Draw)
	assert.Equal(t, config.EngineDarknet, cfg.Engine)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFile(t *testing.T) {
	t.Run("missing file returns defaults", func(t *testing.T) {
		cfg, err := config.LoadConfigFile(filepath.Join(t.TempDir(), "absent.json"))
		require.NoError(t, err)
		assert.Equal(t, config.NewDefaultConfig(), cfg)
	})

	t.Run("partial file overrides defaults", func(t *testing.T) {
		path := writeFile(t, "config.json", `{"width": 416, "height": 416, "threshold": 0.2, "draw": false}`)

		cfg, err := config.LoadConfigFile(path)
		require.NoError(t, err)
		assert.Equal(t, 416, cfg.Width)
		assert.Equal(t, 416, cfg.Height)
		assert.Equal(t, float32(0.2), cfg.Threshold)
		assert.False(t, cfg.Draw)
		assert.Equal(t, float32(0.5), cfg.NMSThreshold)
	})

	t.Run("malformed file fails", func(t *testing.T) {
		path := writeFile(t, "config.json", `{"width": `)

		_, err := config.LoadConfigFile(path)
		assert.Error(t, err)
	})
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := config.NewDefaultConfig()
	cfg.Weights = "best.weights"
	cfg.Threshold = 0.25

	require.NoError(t, cfg.Save(path))

	loaded, err := config.LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *config.Config) {}},
		{name: "416 input", mutate: func(c *config.Config) { c.Width, c.Height = 416, 416 }},
		{name: "zero width", mutate: func(c *config.Config) { c.Width = 0 }, wantErr: true},
		{name: "darknet size not multiple of 32", mutate: func(c *config.Config) { c.Width = 300 }, wantErr: true},
		{name: "tflite accepts any size", mutate: func(c *config.Config) { c.Engine = config.EngineTFLite; c.Width = 300 }},
		{name: "threshold above one", mutate: func(c *config.Config) { c.Threshold = 1.5 }, wantErr: true},
		{name: "negative nms", mutate: func(c *config.Config) { c.NMSThreshold = -0.1 }, wantErr: true},
		{name: "unknown engine", mutate: func(c *config.Config) { c.Engine = "onnx" }, wantErr: true},
		{name: "unknown postprocessing", mutate: func(c *config.Config) { c.PostProcessing = "detr" }, wantErr: true},
		{name: "unknown suppressor", mutate: func(c *config.Config) { c.Suppressor = "soft" }, wantErr: true},
		{name: "greedy suppressor", mutate: func(c *config.Config) { c.Suppressor = config.SuppressorGreedy }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewDefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrInvalidConfig)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConfig_Fingerprint(t *testing.T) {
	a := config.NewDefaultConfig()
	b := config.NewDefaultConfig()
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	b.LogLevel = "debug"
	b.Draw = false
	assert.Equal(t, a.Fingerprint(), b.Fingerprint(), "presentation fields do not change the fingerprint")

	b.Threshold = 0.3
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestConfig_FingerprintBackendTarget(t *testing.T) {
	base := config.NewDefaultConfig()

	tests := []struct {
		name   string
		modify func(c *config.Config)
	}{
		{"backend", func(c *config.Config) { c.Backend = "cuda" }},
		{"target", func(c *config.Config) { c.Target = "fp16" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := config.NewDefaultConfig()
			tt.modify(c)
			assert.NotEqual(t, base.Fingerprint(), c.Fingerprint())
		})
	}
}

func TestRequireFile(t *testing.T) {
	existing := writeFile(t, "yolo.weights", "x")
	assert.NoError(t, config.RequireFile("weights", existing))

	err := config.RequireFile("weights", filepath.Join(t.TempDir(), "missing.weights"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	var nf *models.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "weights", nf.What)
}

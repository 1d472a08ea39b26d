package camera

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	err := Config{}.Validate()
	require.Error(t, err)

	for _, want := range []string{"device", "width", "height", "framerate", "quality"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidate_Bounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Framerate = MaxFramerate + 1
	assert.ErrorContains(t, cfg.Validate(), "framerate")

	cfg = DefaultConfig()
	cfg.Quality = 101
	assert.ErrorContains(t, cfg.Validate(), "quality")
}

func TestPresets_AllValid(t *testing.T) {
	for _, name := range PresetNames() {
		cfg := GetPreset(name)
		require.NotNil(t, cfg, name)
		assert.NoError(t, cfg.Validate(), name)
	}
	assert.Nil(t, GetPreset("8k"))
}

func TestDeviceID(t *testing.T) {
	assert.Equal(t, 0, deviceID("0"))
	assert.Equal(t, 2, deviceID("2"))
	assert.Equal(t, "/dev/video0", deviceID("/dev/video0"))
	assert.Equal(t, "rtsp://cam/stream", deviceID("rtsp://cam/stream"))
	assert.Equal(t, "-1", deviceID("-1"))
}

func TestOpen_InvalidConfig(t *testing.T) {
	_, err := Open(Config{})
	assert.ErrorContains(t, err, "invalid config")
}

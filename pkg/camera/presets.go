package camera

// Preset names for common capture modes.
const (
	PresetDefault = "default"
	Preset480p    = "480p"
	Preset720p    = "720p"
	Preset1080p   = "1080p"
	PresetLowRate = "lowrate"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault: DefaultConfig(),
		Preset480p:    SD480Config(),
		Preset720p:    DefaultConfig(),
		Preset1080p:   HD1080Config(),
		PresetLowRate: LowRateConfig(),
	}
}

// PresetNames returns the preset names in display order.
func PresetNames() []string {
	return []string{PresetDefault, Preset480p, Preset720p, Preset1080p, PresetLowRate}
}

// GetPreset returns the named preset, or nil if unknown.
func GetPreset(name string) *Config {
	if cfg, ok := Presets()[name]; ok {
		return &cfg
	}
	return nil
}

// SD480Config is 640x480, enough for 224px classifier input.
func SD480Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 640
	cfg.Height = 480
	return cfg
}

// HD1080Config is 1920x1080 for a sharper dashboard preview.
func HD1080Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1920
	cfg.Height = 1080
	return cfg
}

// LowRateConfig captures at 10 FPS, matching the recognition tick rate.
func LowRateConfig() Config {
	cfg := SD480Config()
	cfg.Framerate = 10
	cfg.Quality = 75
	return cfg
}

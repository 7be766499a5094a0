// Package config handles tool configuration loading and management.
package config

// Config holds all glbsplit settings.
type Config struct {
	Output  OutputConfig  `yaml:"output"`
	Extract ExtractConfig `yaml:"extract"`
	Logging LoggingConfig `yaml:"logging"`
}

// OutputConfig holds output placement settings.
type OutputConfig struct {
	Dir string `yaml:"dir"` // Directory extracted files are written to
}

// ExtractConfig selects which extraction kinds run by default.
type ExtractConfig struct {
	Materials bool `yaml:"materials"`
	Textures  bool `yaml:"textures"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Output: OutputConfig{
			Dir: ".",
		},
		Extract: ExtractConfig{
			Materials: true,
			Textures:  false,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"vidflow/domain/notification"
	"vidflow/domain/preset"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where commands look for the configuration file
const DefaultPath = "config/config.yaml"

// Delivery targets for exported artifacts
const (
	DeliveryFile  = "file"
	DeliveryDrive = "drive"
)

// Config represents the complete application configuration
type Config struct {
	Paths    PathsConfig    `yaml:"paths"`
	Audio    AudioConfig    `yaml:"audio"`
	Playback PlaybackConfig `yaml:"playback"`
	Export   ExportConfig   `yaml:"export"`
	FFmpeg   FFmpegConfig   `yaml:"ffmpeg"`
	Google   GoogleConfig   `yaml:"google"`
	Email    EmailConfig    `yaml:"email"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Log      LogConfig      `yaml:"log"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// PathsConfig contains directories used by exports
type PathsConfig struct {
	OutputDirectory string `yaml:"output_directory"`
	WorkDirectory   string `yaml:"work_directory"`
}

// AudioConfig contains signal graph and capture settings
type AudioConfig struct {
	SampleRate     int `yaml:"sample_rate"`
	Channels       int `yaml:"channels"`
	CrossfadeMS    int `yaml:"crossfade_ms"`
	CaptureBitrate int `yaml:"capture_bitrate"`
}

// Crossfade returns the path crossfade window
func (a AudioConfig) Crossfade() time.Duration {
	return time.Duration(a.CrossfadeMS) * time.Millisecond
}

// PlaybackConfig controls how fast the player drives the graph
type PlaybackConfig struct {
	Speed float64 `yaml:"speed"`
}

// ExportConfig contains export settings
type ExportConfig struct {
	AudioBitrate string `yaml:"audio_bitrate"`
	Delivery     string `yaml:"delivery"`
}

// FFmpegConfig contains transcoding binary locations
type FFmpegConfig struct {
	FFmpegPath  string `yaml:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path"`
}

// GoogleConfig contains Google API settings
type GoogleConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	TokenFile       string `yaml:"token_file"`
	ExportFolderID  string `yaml:"export_folder_id"`
	// PruneOldest deletes the folder's oldest files when the account is full
	PruneOldest bool `yaml:"prune_oldest"`
}

// EmailConfig controls the message sent after a Drive delivery.
// No recipients means no email.
type EmailConfig struct {
	FromName    string   `yaml:"from_name"`
	FromAddress string   `yaml:"from_address"`
	SenderName  string   `yaml:"sender_name"`
	Recipients  []string `yaml:"recipients"`
}

// Enabled reports whether any recipient is configured
func (e EmailConfig) Enabled() bool {
	return len(e.Recipients) > 0
}

// MonitorConfig contains the control API and live monitor settings
type MonitorConfig struct {
	ListenAddress string `yaml:"listen_address"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultsConfig holds the initial preset selection
type DefaultsConfig struct {
	Preset   string  `yaml:"preset"`
	Strength float64 `yaml:"strength"`
}

// Default returns a configuration with every field filled in
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			OutputDirectory: "exports",
			WorkDirectory:   os.TempDir(),
		},
		Audio: AudioConfig{
			SampleRate:     48000,
			Channels:       2,
			CrossfadeMS:    30,
			CaptureBitrate: 128000,
		},
		Playback: PlaybackConfig{Speed: 1},
		Export: ExportConfig{
			AudioBitrate: "192k",
			Delivery:     DeliveryFile,
		},
		FFmpeg: FFmpegConfig{
			FFmpegPath:  "ffmpeg",
			FFprobePath: "ffprobe",
		},
		Google: GoogleConfig{
			CredentialsFile: "credentials.json",
			TokenFile:       "token.json",
		},
		Monitor: MonitorConfig{ListenAddress: "127.0.0.1:8080"},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Defaults: DefaultsConfig{
			Preset:   "speech",
			Strength: 100,
		},
	}
}

// Validate reports every invalid value at once
func (c *Config) Validate() error {
	var errs []error
	if c.Audio.SampleRate != 48000 && c.Audio.SampleRate != 24000 && c.Audio.SampleRate != 16000 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d is not supported (use 48000, 24000 or 16000)", c.Audio.SampleRate))
	}
	if c.Audio.Channels < 1 || c.Audio.Channels > 2 {
		errs = append(errs, fmt.Errorf("audio.channels must be 1 or 2, got %d", c.Audio.Channels))
	}
	if c.Audio.CrossfadeMS < 1 {
		errs = append(errs, fmt.Errorf("audio.crossfade_ms must be positive, got %d", c.Audio.CrossfadeMS))
	}
	if c.Audio.CaptureBitrate < 6000 || c.Audio.CaptureBitrate > 510000 {
		errs = append(errs, fmt.Errorf("audio.capture_bitrate must be between 6000 and 510000, got %d", c.Audio.CaptureBitrate))
	}
	if c.Playback.Speed <= 0 {
		errs = append(errs, fmt.Errorf("playback.speed must be positive, got %v", c.Playback.Speed))
	}
	switch c.Export.Delivery {
	case DeliveryFile:
	case DeliveryDrive:
		if c.Google.ExportFolderID == "" {
			errs = append(errs, errors.New("google.export_folder_id is required for drive delivery"))
		}
	default:
		errs = append(errs, fmt.Errorf("export.delivery must be %q or %q, got %q", DeliveryFile, DeliveryDrive, c.Export.Delivery))
	}
	if c.Email.Enabled() {
		if _, err := notification.ParseRecipients(c.Email.Recipients); err != nil {
			errs = append(errs, fmt.Errorf("email.recipients: %w", err))
		}
		if c.Email.FromAddress == "" {
			errs = append(errs, errors.New("email.from_address is required when email.recipients is set"))
		}
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if _, err := preset.Parse(c.Defaults.Preset); err != nil {
		errs = append(errs, fmt.Errorf("defaults.preset: %w", err))
	}
	if c.Defaults.Strength < 0 || c.Defaults.Strength > 100 {
		errs = append(errs, fmt.Errorf("defaults.strength must be within 0-100, got %v", c.Defaults.Strength))
	}
	return errors.Join(errs...)
}

// Load reads and parses the configuration from the specified YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Fields missing from the file keep their defaults.
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the specified YAML file
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Errors for config management
var (
	ErrUnknownKey   = errors.New("unknown config key")
	ErrInvalidValue = errors.New("invalid config value")
)

// Setting is one editable configuration entry
type Setting struct {
	Key   string
	Value string
}

type field struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringField(ptr func(c *Config) *string) field {
	return field{
		get: func(c *Config) string { return *ptr(c) },
		set: func(c *Config, v string) error {
			*ptr(c) = v
			return nil
		},
	}
}

func intField(ptr func(c *Config) *int) field {
	return field{
		get: func(c *Config) string { return strconv.Itoa(*ptr(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, v)
			}
			*ptr(c) = n
			return nil
		},
	}
}

func floatField(ptr func(c *Config) *float64) field {
	return field{
		get: func(c *Config) string { return strconv.FormatFloat(*ptr(c), 'f', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%w: %q is not a number", ErrInvalidValue, v)
			}
			*ptr(c) = f
			return nil
		},
	}
}

func boolField(ptr func(c *Config) *bool) field {
	return field{
		get: func(c *Config) string { return strconv.FormatBool(*ptr(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%w: %q is not true or false", ErrInvalidValue, v)
			}
			*ptr(c) = b
			return nil
		},
	}
}

// listField stores a comma-separated value; an empty value clears the list
func listField(ptr func(c *Config) *[]string) field {
	return field{
		get: func(c *Config) string { return strings.Join(*ptr(c), ",") },
		set: func(c *Config, v string) error {
			var items []string
			for _, item := range strings.Split(v, ",") {
				if item = strings.TrimSpace(item); item != "" {
					items = append(items, item)
				}
			}
			*ptr(c) = items
			return nil
		},
	}
}

var fields = map[string]field{
	"paths.output_directory": stringField(func(c *Config) *string { return &c.Paths.OutputDirectory }),
	"paths.work_directory":   stringField(func(c *Config) *string { return &c.Paths.WorkDirectory }),
	"audio.sample_rate":      intField(func(c *Config) *int { return &c.Audio.SampleRate }),
	"audio.channels":         intField(func(c *Config) *int { return &c.Audio.Channels }),
	"audio.crossfade_ms":     intField(func(c *Config) *int { return &c.Audio.CrossfadeMS }),
	"audio.capture_bitrate":  intField(func(c *Config) *int { return &c.Audio.CaptureBitrate }),
	"playback.speed":         floatField(func(c *Config) *float64 { return &c.Playback.Speed }),
	"export.audio_bitrate":   stringField(func(c *Config) *string { return &c.Export.AudioBitrate }),
	"export.delivery":        stringField(func(c *Config) *string { return &c.Export.Delivery }),
	"ffmpeg.ffmpeg_path":     stringField(func(c *Config) *string { return &c.FFmpeg.FFmpegPath }),
	"ffmpeg.ffprobe_path":    stringField(func(c *Config) *string { return &c.FFmpeg.FFprobePath }),
	"google.credentials_file": stringField(func(c *Config) *string {
		return &c.Google.CredentialsFile
	}),
	"google.token_file":       stringField(func(c *Config) *string { return &c.Google.TokenFile }),
	"google.export_folder_id": stringField(func(c *Config) *string { return &c.Google.ExportFolderID }),
	"google.prune_oldest":     boolField(func(c *Config) *bool { return &c.Google.PruneOldest }),
	"email.from_name":         stringField(func(c *Config) *string { return &c.Email.FromName }),
	"email.from_address":      stringField(func(c *Config) *string { return &c.Email.FromAddress }),
	"email.sender_name":       stringField(func(c *Config) *string { return &c.Email.SenderName }),
	"email.recipients":        listField(func(c *Config) *[]string { return &c.Email.Recipients }),
	"monitor.listen_address":  stringField(func(c *Config) *string { return &c.Monitor.ListenAddress }),
	"log.level":               stringField(func(c *Config) *string { return &c.Log.Level }),
	"log.format":              stringField(func(c *Config) *string { return &c.Log.Format }),
	"defaults.preset":         stringField(func(c *Config) *string { return &c.Defaults.Preset }),
	"defaults.strength":       floatField(func(c *Config) *float64 { return &c.Defaults.Strength }),
}

// ConfigManager reads and edits individual config entries by dotted key
type ConfigManager struct {
	config     *Config
	configPath string
}

// NewConfigManager creates a new config manager
func NewConfigManager(cfg *Config, configPath string) *ConfigManager {
	return &ConfigManager{
		config:     cfg,
		configPath: configPath,
	}
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Get returns the value stored under key
func (m *ConfigManager) Get(key string) (string, error) {
	f, ok := fields[normalizeKey(key)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return f.get(m.config), nil
}

// Set updates key, validates the whole config and saves it.
// An invalid value leaves the config unchanged.
func (m *ConfigManager) Set(key, value string) error {
	key = normalizeKey(key)
	f, ok := fields[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	candidate := *m.config
	if err := f.set(&candidate, strings.TrimSpace(value)); err != nil {
		return err
	}
	if err := candidate.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}

	*m.config = candidate
	return Save(m.config, m.configPath)
}

// List returns all settings sorted by key
func (m *ConfigManager) List() []Setting {
	result := make([]Setting, 0, len(fields))
	for key, f := range fields {
		result = append(result, Setting{Key: key, Value: f.get(m.config)})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})
	return result
}

// SuggestSetCommand returns the command that sets key
func SuggestSetCommand(key string) string {
	return fmt.Sprintf(`vidflow config set %s <value>`, key)
}

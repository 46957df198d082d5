package cmd

import (
	"fmt"
	"os"

	"vidflow/infrastructure/config"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
	cfg      *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "vidflow",
	Short: "Reduce background music in recordings and export the result",
	Long: `vidflow routes a recording's audio through a tunable processing chain that
pushes music down and keeps speech forward, then exports the result:

  - Export processed audio as WAV
  - Re-encode a local video with the processed soundtrack
  - Preview presets live over a local control API and WebRTC monitor

Example:
  vidflow export audio --source sermon.mp4 --preset speech --strength 80`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return configureLogging(GetConfig(), logLevel)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

func initConfig() {
	if cfgFile == "" {
		cfgFile = config.DefaultPath
	}

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		// Every command can run on defaults; setup and config set create the file
		cfg = nil
	}
}

// GetConfig returns the loaded configuration
func GetConfig() *config.Config {
	return cfg
}

// effectiveConfig returns the loaded configuration or the defaults
func effectiveConfig() *config.Config {
	if c := GetConfig(); c != nil {
		return c
	}
	return config.Default()
}

// configureLogging applies the configured level and format; a non-empty
// override wins over the file.
func configureLogging(c *config.Config, override string) error {
	if c == nil {
		c = config.Default()
	}
	levelName := c.Log.Level
	if override != "" {
		levelName = override
	}
	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		return &ValidationError{
			Message:    fmt.Sprintf("invalid log level %q", levelName),
			Suggestion: "vidflow --log-level info ...",
		}
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stderr)

	if c.Log.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

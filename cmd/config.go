package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"vidflow/infrastructure/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and change configuration values",
	Long: `Read and change individual values in the configuration file by dotted key.

Examples:
  vidflow config list
  vidflow config get audio.sample_rate
  vidflow config set defaults.preset music
  vidflow config set export.delivery drive`,
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configListCmd)
}

// --- GET command ---

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunConfigGetWithDependencies(effectiveConfig(), cfgFile, args[0], DefaultOutput)
	},
}

// RunConfigGetWithDependencies runs the get command with injected dependencies
func RunConfigGetWithDependencies(cfg *config.Config, configPath, key string, out OutputWriter) error {
	value, err := config.NewConfigManager(cfg, configPath).Get(key)
	if err != nil {
		return unknownKey(key, err)
	}
	fmt.Fprintln(out, value)
	return nil
}

// --- SET command ---

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one configuration value",
	Long: `Change one configuration value. The whole configuration is validated
before it is saved; the file is created from defaults when missing.

Examples:
  vidflow config set audio.crossfade_ms 50
  vidflow config set google.export_folder_id 1AbCdEf`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunConfigSetWithDependencies(effectiveConfig(), cfgFile, args[0], args[1], DefaultOutput)
	},
}

// RunConfigSetWithDependencies runs the set command with injected dependencies
func RunConfigSetWithDependencies(cfg *config.Config, configPath, key, value string, out OutputWriter) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := config.NewConfigManager(cfg, configPath).Set(key, value); err != nil {
		return unknownKey(key, err)
	}
	fmt.Fprintf(out, "Set %s = %s\n", key, value)
	return nil
}

// --- LIST command ---

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every configuration value",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunConfigListWithDependencies(effectiveConfig(), cfgFile, DefaultOutput)
	},
}

// RunConfigListWithDependencies runs the list command with injected dependencies
func RunConfigListWithDependencies(cfg *config.Config, configPath string, out OutputWriter) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tVALUE")
	for _, s := range config.NewConfigManager(cfg, configPath).List() {
		fmt.Fprintf(w, "%s\t%s\n", s.Key, s.Value)
	}
	return w.Flush()
}

func unknownKey(key string, err error) error {
	if errors.Is(err, config.ErrUnknownKey) {
		return &ValidationError{
			Message:    fmt.Sprintf("unknown config key %q", key),
			Suggestion: "vidflow config list",
		}
	}
	return err
}

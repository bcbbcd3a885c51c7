package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/numscan/internal/model"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage numscan configuration",
	Long: `Manage numscan configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (NUMSCAN_*, also read from ./.env)
3. Config file (~/.numscan/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after defaults, config file and environment variables are applied.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if configFile := viper.ConfigFileUsed(); configFile != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		yamlData, err := yaml.Marshal(cfg)
		if err != nil {
			return eris.Wrap(err, "marshal config")
		}

		_, err = cmd.OutOrStdout().Write(yamlData)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file at ~/.numscan/config.yaml with all available options.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return eris.Wrap(err, "find home directory")
		}

		configPath := filepath.Join(home, ".numscan", "config.yaml")
		if err := writeDefaultConfig(configPath); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Created default configuration: %s\n", configPath)
		fmt.Fprintf(out, "\nTo view the configuration:\n")
		fmt.Fprintf(out, "  numscan config show\n")
		fmt.Fprintf(out, "\nTo customize, edit the file with your preferred editor:\n")
		fmt.Fprintf(out, "  $EDITOR %s\n\n", configPath)
		return nil
	},
}

// writeDefaultConfig writes the documented defaults to path, refusing to
// overwrite an existing file
func writeDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return eris.Errorf("config file already exists: %s\nUse 'numscan config show' to view it, or delete it first to recreate", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return eris.Wrap(err, "create config directory")
	}

	yamlData, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return eris.Wrap(err, "marshal config")
	}

	header := `# numscan configuration file
#
# Configuration hierarchy (highest to lowest priority):
#   1. CLI flags
#   2. Environment variables (NUMSCAN_SECTION_KEY, e.g. NUMSCAN_REPORT_TOP_N=10)
#   3. This config file
#   4. Built-in defaults
#
# scaling.context_scope: "page" limits hints like "(in millions)" to their own
# page; "document" carries the last hint forward to later pages.
# cache.dir: empty keeps the page analysis cache in memory only.
# store.path: empty archives runs in ~/.numscan/runs.db.

`
	if err := os.WriteFile(path, append([]byte(header), yamlData...), 0644); err != nil {
		return eris.Wrap(err, "write config file")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

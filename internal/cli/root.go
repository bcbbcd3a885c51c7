package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/numscan/internal/cache"
	"github.com/ppiankov/numscan/internal/logging"
	"github.com/ppiankov/numscan/internal/model"
	"github.com/ppiankov/numscan/internal/store"
)

// Version is the numscan release
const Version = "0.1.0"

var (
	cfgFile   string
	verbose   bool
	logFormat string
)

// configKeys are the settings that may come from the config file or NUMSCAN_* variables
var configKeys = []string{
	"extraction.context_radius",
	"scaling.explicit_window",
	"scaling.abbreviations",
	"scaling.context_scope",
	"report.top_n",
	"report.context_preview",
	"concurrency.workers",
	"concurrency.documents",
	"cache.enabled",
	"cache.dir",
	"cache.memory_ttl",
	"cache.disk_ttl",
	"http.timeout",
	"http.user_agent",
	"http.max_body_bytes",
	"http.respect_robots",
	"http.http_proxy",
	"http.https_proxy",
	"http.no_proxy",
	"rate_limiting.requests_per_second",
	"rate_limiting.burst_size",
	"rate_limiting.delay",
	"store.path",
	"output.verbose",
	"output.log_format",
	"output.include_footer",
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "numscan",
	Short: "numscan - find, scale and rank the numbers in long documents",
	Long: `numscan extracts every numeric value from a paged document (text, PDF or
HTML, local or over http), attributes scale words such as "9.6 billion" or
"(dollars in millions)", removes duplicates and ranks what is left.

Plain and scaled numbers are reported separately so a 30,704.1 in a table
headed "in millions" is ranked as 30,704,100,000 without hiding the raw figure.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of numscan.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "numscan v%s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.numscan/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: console or json")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("output.log_format", rootCmd.PersistentFlags().Lookup("log-format"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in .env, the config file and ENV variables
func initConfig() {
	// A missing .env is normal
	_ = godotenv.Load()

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(filepath.Join(home, ".numscan"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match NUMSCAN_*, e.g. NUMSCAN_REPORT_TOP_N
	viper.SetEnvPrefix("NUMSCAN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, key := range configKeys {
		_ = viper.BindEnv(key)
	}

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig layers the config file and environment over the defaults
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, eris.Wrap(err, "decode configuration")
	}
	if cfg.Report.TopN < 0 {
		return nil, eris.Errorf("report.top_n must not be negative, got %d", cfg.Report.TopN)
	}
	return cfg, nil
}

// newLogger builds the command logger from the configuration
func newLogger(cfg *model.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.Output.Verbose, cfg.Output.LogFormat)
	if err != nil {
		return nil, eris.Wrap(err, "logger")
	}
	return logger, nil
}

// newPageCache returns the page analysis cache, or nil when caching is disabled
func newPageCache(cfg *model.Config) cache.Cache {
	if !cfg.Cache.Enabled {
		return nil
	}
	return cache.New(cfg.Cache.Dir, cfg.Cache.MemoryTTL, cfg.Cache.DiskTTL)
}

// storePath returns the archive location, defaulting to ~/.numscan/runs.db
func storePath(cfg *model.Config) (string, error) {
	if cfg.Store.Path != "" {
		return cfg.Store.Path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", eris.Wrap(err, "find home directory")
	}
	return filepath.Join(home, ".numscan", "runs.db"), nil
}

// openStore opens the run archive
func openStore(cfg *model.Config) (*store.Store, error) {
	path, err := storePath(cfg)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "open archive")
	}
	return st, nil
}

package cmd

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"postershelf/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "postershelf",
	Short: "Browse movie catalogs and their posters from the terminal",
	Long: `postershelf loads movie catalogs published as JSON over HTTP and
shows their posters, fetched in the background into an in-memory cache.

Features:
- Interactive terminal UI with category, catalog and poster panels
- Catalog loading and poster checks from the command line
- Inspection of any URL (status, headers, text or image body)

Examples:
  postershelf tui
  postershelf catalog action
  postershelf catalog http://127.0.0.1:3000/movies/comedy --format yaml
  postershelf fetch https://picsum.photos/seed/1/640`,
	Version: "1.0.0",
}

func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.postershelf/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
}

// loadConfig reads the configuration and applies its log level unless
// --verbose already asked for debug output.
func loadConfig() *config.Config {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	if verbose {
		logrus.Debugf("Using config file: %s", viper.ConfigFileUsed())
		return cfg
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}
	return cfg
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rlcone/ptm/pkg/config"
	"github.com/rlcone/ptm/pkg/logger"
	"github.com/rlcone/ptm/pkg/runtime"
	"github.com/rlcone/ptm/pkg/stringutils"
)

var (
	// Global flags
	flagConfigFile string
	flagLogFile    string
	flagDryRun     bool
	flagQuiet      bool
	flagLogLevel   int

	initialized bool
)

var rootCmd = &cobra.Command{
	Use:   "ptm",
	Short: "A CLI torrent post-processing manager",
	Long: `A CLI application that hard-links completed torrents into post-processing
directories and removes them from the download client once their seed
requirements are met.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Parse persistent flags
	rootCmd.PersistentFlags().StringVarP(&flagConfigFile, "config", "c", "config.yml", "Config file")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log", "", "Log file")

	rootCmd.PersistentFlags().BoolVarP(&flagDryRun, "dry-run", "d", false, "Dry run mode")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress console output")
	rootCmd.PersistentFlags().CountVarP(&flagLogLevel, "verbose", "v", "Verbose level")
}

func initCore(showAppInfo bool) {
	// Set core variables
	if !rootCmd.PersistentFlags().Changed("config") {
		if env := os.Getenv("PTM_CONFIG"); env != "" {
			flagConfigFile = env
		}
	}

	// Init Logging
	if err := logger.Init(flagLogLevel, flagQuiet, flagLogFile); err != nil {
		log := logger.GetLogger("app")
		log.WithError(err).Fatal("Failed to initialize logging")
	}

	if showAppInfo {
		showUsing()
	}

	// Init Config
	if err := config.Init(flagConfigFile); err != nil {
		log := logger.GetLogger("cfg")
		log.WithError(err).Fatal("Failed to initialize config")
	}

	config.ShowUsing()
}

func showUsing() {
	// show app info
	log := logger.GetLogger("app")
	log.Infof("Using %s = %s (%s@%s)", stringutils.LeftJust("VERSION", " ", 10),
		runtime.Version, runtime.GitCommit, runtime.Timestamp)
}

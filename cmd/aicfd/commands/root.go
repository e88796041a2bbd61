// Package commands provides the CLI commands for aicfd.
package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/aicfd/aicfd/internal/config"
	"github.com/aicfd/aicfd/internal/logging"
)

var (
	Version   = "0.1.0"
	BuildTime = "dev"
)

var (
	logLevel     string
	logFile      bool
	showConfig   bool
	baseDirFlag  string
	tickInterval int
)

var rootCmd = &cobra.Command{
	Use:   "aicfd",
	Short: "aicfd consolidates local LLM conversation history into durable, queryable memory",
	Long: `aicfd watches Augment, Warp, Claude Desktop and Claude CLI conversation
stores, consolidates them into per-conversation AICF records, and ages
them through recent/medium/old/archive retention tiers.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A missing .env is not an error: it only matters for local
		// development and test fixtures that set AICF_BASE_DIR.
		_ = godotenv.Load()

		logCfg := logging.DefaultConfig()
		logCfg.Level = logging.ParseLevel(logLevel)
		logCfg.Daemon = logFile

		if baseDir, err := config.ResolveBaseDir(baseDirFlag); err == nil {
			logCfg.BaseDir = baseDir
		}

		logging.Init(logCfg)

		if showConfig {
			baseDir, err := config.ResolveBaseDir(baseDirFlag)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error resolving base dir: %v\n", err)
				os.Exit(1)
			}

			cfg, err := config.Load(baseDir)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
				os.Exit(1)
			}

			data, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				fmt.Fprintf(os.Stderr, "error marshaling config: %v\n", err)
				os.Exit(1)
			}

			fmt.Println(string(data))
			os.Exit(0)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "Log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.PersistentFlags().BoolVar(&logFile, "log-file", false, "Mirror logs to .watcher.log/.watcher.error.log under --base-dir")
	rootCmd.PersistentFlags().BoolVar(&showConfig, "show-config", false, "Print merged configuration as JSON and exit")
	rootCmd.PersistentFlags().StringVar(&baseDirFlag, "base-dir", "", "Project base directory (default: $AICF_BASE_DIR or the working directory)")
	rootCmd.PersistentFlags().IntVar(&tickInterval, "tick-interval", 0, "Override the orchestrator tick interval in milliseconds")

	rootCmd.SetVersionTemplate(fmt.Sprintf("aicfd %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(tickCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(permissionsCmd)
	rootCmd.AddCommand(statusCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// resolvedBaseDir returns the effective base directory for this invocation.
func resolvedBaseDir() (string, error) {
	return config.ResolveBaseDir(baseDirFlag)
}

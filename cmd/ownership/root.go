package main

import (
	"github.com/spf13/cobra"

	"github.com/Stoky555/ownership-graph/internal/cli"
	"github.com/Stoky555/ownership-graph/internal/logger"
)

var (
	// Global state set during PersistentPreRunE
	cfg        = &cli.Config{}
	configPath string
	log        = logger.Nop()

	// Persistent flags
	cfgFile string
	verbose int
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "ownership",
	Short: "Effective ownership across ownership networks",
	Long: `ownership - Effective ownership across ownership networks

Computes direct and indirect (multi-hop, cycle-safe) ownership percentages
between entities and the objects they hold, directly or through chains of
intermediate objects.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for help/completion/version commands
		if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, configPath, err = cli.LoadConfig(cfgFile)
		if err != nil {
			return cli.ConfigError("loading configuration", err)
		}

		level := cfg.Log.Level
		if verbose > 0 {
			level = "debug"
		}
		if log, err = logger.New(cfg.Log.Mode, level); err != nil {
			return cli.ConfigError("configuring logger", err)
		}
		log.Debug("configuration loaded", "path", configPath)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		log.Sync()
	},
	SilenceUsage:  true, // Don't show usage on errors
	SilenceErrors: true, // We handle errors ourselves
}

// Command group IDs
const (
	groupCompute = "compute"
	groupStore   = "store"
	groupUtility = "utility"
)

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: auto-discover ownership.yaml)")
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "increase verbosity (can be repeated)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")

	rootCmd.AddGroup(
		&cobra.Group{ID: groupCompute, Title: "Compute:"},
		&cobra.Group{ID: groupStore, Title: "Store:"},
		&cobra.Group{ID: groupUtility, Title: "Utility:"},
	)

	for _, c := range []*cobra.Command{computeCmd, reportCmd, validateCmd, doctorCmd, graphCmd, sampleCmd} {
		c.GroupID = groupCompute
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{migrateCmd, statusCmd, saveCmd, loadCmd, syncCmd} {
		c.GroupID = groupStore
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{serveCmd, configCmd, versionCmd} {
		c.GroupID = groupUtility
		rootCmd.AddCommand(c)
	}
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		cli.ExitWithError(err)
	}
}

// resolveString returns the first non-empty string from the provided values.
// Used to implement precedence: flag > config > default.
func resolveString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// resolveBool returns true if any of the provided values is true.
func resolveBool(values ...bool) bool {
	for _, v := range values {
		if v {
			return true
		}
	}
	return false
}

// resolveFloat returns the first non-zero value.
func resolveFloat(values ...float64) float64 {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

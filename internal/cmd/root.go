// Package cmd implements the conclave command-line interface.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conclave-ai/conclave/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "conclave",
	Short: "Multi-instance model orchestration engine",
	Long: `Conclave fans a single request out to multiple independently-addressable
model instances and sequences them through an orchestration strategy -
election, hierarchical decomposition, tournament, consensus, debate,
council, scattershot, or confidence-weighted synthesis - producing one
aggregated result with summed usage accounting.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/conclave/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/conclave")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("CONCLAVE")
	// Replace dots with underscores for nested keys in env vars
	// e.g., CONCLAVE_FANOUT_MAX_IN_FLIGHT for fanout.max_in_flight
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conclave-ai/conclave/internal/config"
	"github.com/conclave-ai/conclave/internal/logging"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify Conclave configuration",
	Long: `View or modify Conclave configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  conclave config set modes.consensus_threshold 0.9
  conclave config set fanout.max_in_flight 4
  conclave config set store.backend redis

Valid keys:
  modes.max_consensus_rounds   - Revision round cap for consensus mode
  modes.consensus_threshold    - Agreement level that stops consensus (0..1)
  modes.debate_rounds          - Rebuttal rounds in debated mode
  modes.council_rounds         - Discussion rounds in council mode
  modes.scattershot_variations - Parameter variations in scattershot mode
  modes.confidence_threshold   - Minimum confidence to enter synthesis (0..1)
  fanout.max_in_flight         - Concurrent invocations (0 = unbounded)
  invoker.command              - Model invocation command
  store.backend                - Session store backend (memory, redis)
  store.redis_url              - Redis connection URL
  metrics.enabled              - Start the metrics listener (true/false)
  metrics.listen_addr          - Metrics listen address
  logging.level                - Log level (debug, info, warn, error)`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/conclave/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

var configWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the config file and validate each change",
	Long: `Watch the active config file and revalidate it on every save.

Each change is reported as accepted or rejected, which makes it easy to
edit the file in one terminal while checking it in another. Runs until
interrupted.`,
	RunE: runConfigWatch,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configWatchCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	cmd.Println("Current configuration:")
	cmd.Println()

	if viper.ConfigFileUsed() != "" {
		cmd.Printf("Config file: %s\n", viper.ConfigFileUsed())
	} else {
		cmd.Printf("Config file: (none - using defaults)\n")
	}
	cmd.Println()

	cmd.Println("modes:")
	cmd.Printf("  max_consensus_rounds: %d\n", cfg.Modes.MaxConsensusRounds)
	cmd.Printf("  consensus_threshold: %g\n", cfg.Modes.ConsensusThreshold)
	cmd.Printf("  debate_rounds: %d\n", cfg.Modes.DebateRounds)
	cmd.Printf("  council_rounds: %d\n", cfg.Modes.CouncilRounds)
	cmd.Printf("  scattershot_variations: %d\n", cfg.Modes.ScattershotVariations)
	cmd.Printf("  confidence_threshold: %g\n", cfg.Modes.ConfidenceThreshold)

	cmd.Println("fanout:")
	cmd.Printf("  max_in_flight: %d\n", cfg.Fanout.MaxInFlight)

	cmd.Println("invoker:")
	cmd.Printf("  command: %s\n", cfg.Invoker.Command)
	cmd.Printf("  args: %s\n", strings.Join(cfg.Invoker.Args, " "))
	cmd.Printf("  model_flag: %s\n", cfg.Invoker.ModelFlag)

	cmd.Println("store:")
	cmd.Printf("  backend: %s\n", cfg.Store.Backend)
	if cfg.Store.Backend == "redis" {
		cmd.Printf("  redis_url: %s\n", cfg.Store.RedisURL)
		cmd.Printf("  key_prefix: %s\n", cfg.Store.KeyPrefix)
	}

	cmd.Println("metrics:")
	cmd.Printf("  enabled: %v\n", cfg.Metrics.Enabled)
	cmd.Printf("  listen_addr: %s\n", cfg.Metrics.ListenAddr)

	cmd.Println("logging:")
	cmd.Printf("  enabled: %v\n", cfg.Logging.Enabled)
	cmd.Printf("  level: %s\n", cfg.Logging.Level)

	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	validKeys := map[string]string{
		"modes.max_consensus_rounds":   "int",
		"modes.consensus_threshold":    "float",
		"modes.debate_rounds":          "int",
		"modes.council_rounds":         "int",
		"modes.scattershot_variations": "int",
		"modes.confidence_threshold":   "float",
		"fanout.max_in_flight":         "int",
		"invoker.command":              "string",
		"invoker.model_flag":           "string",
		"store.backend":                "string",
		"store.redis_url":              "string",
		"store.key_prefix":             "string",
		"metrics.enabled":              "bool",
		"metrics.listen_addr":          "string",
		"logging.enabled":              "bool",
		"logging.level":                "string",
	}

	keyType, ok := validKeys[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s\nRun 'conclave config set --help' to see valid keys", key)
	}

	var typedValue interface{}
	switch keyType {
	case "string":
		typedValue = value
	case "bool":
		if value != "true" && value != "false" {
			return fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		typedValue = value == "true"
	case "int":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected integer", key)
		}
		if intVal < 0 {
			return fmt.Errorf("invalid value for %s: must be non-negative", key)
		}
		typedValue = intVal
	case "float":
		floatVal, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected number", key)
		}
		typedValue = floatVal
	}

	viper.Set(key, typedValue)

	// Reject the write early if it would produce an invalid config.
	if _, err := config.Load(); err != nil {
		return err
	}

	configDir := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := config.ConfigFile()
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	cmd.Printf("Set %s = %v\n", key, typedValue)
	cmd.Printf("Config saved to %s\n", configFile)

	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'conclave config set' to modify values", configFile)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configContent := `# Conclave Configuration

# Orchestration mode tuning
modes:
  # Revision round cap for consensus mode
  max_consensus_rounds: 5
  # Agreement level at which consensus mode stops early (0..1)
  consensus_threshold: 0.8
  # Rebuttal rounds in debated mode (after openings)
  debate_rounds: 2
  # Discussion rounds in council mode (after openings)
  council_rounds: 2
  # Parameter variations in scattershot mode
  scattershot_variations: 4
  # Minimum confidence for a response to enter synthesis (0..1)
  confidence_threshold: 0

# Fan-out settings
fanout:
  # Concurrent model invocations (0 = unbounded)
  max_in_flight: 8

# Model invocation
invoker:
  command: claude
  args: [--print]
  model_flag: --model

# Session persistence
store:
  # Options: memory, redis
  backend: memory
  # redis_url: redis://localhost:6379/0
  key_prefix: conclave

# Prometheus metrics
metrics:
  enabled: false
  listen_addr: ":9187"

# Session logging
logging:
  enabled: true
  level: info
`

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	cmd.Printf("Created config file at %s\n", configFile)
	cmd.Println("Edit this file to customize Conclave's behavior.")

	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	if viper.ConfigFileUsed() != "" {
		cmd.Printf("Active config: %s\n", viper.ConfigFileUsed())
	} else {
		cmd.Printf("Default location: %s (not created yet)\n", config.ConfigFile())
	}
	return nil
}

func runConfigWatch(cmd *cobra.Command, args []string) error {
	path := viper.ConfigFileUsed()
	if path == "" {
		return fmt.Errorf("no config file in use; run 'conclave config init' first")
	}

	// Reject an already-broken file before settling into the watch.
	if _, err := config.Load(); err != nil {
		cmd.PrintErrf("current config is invalid: %v\n", err)
	}

	// Stderr logger so rejected saves surface as warn lines.
	logger, err := logging.NewLogger("", "info")
	if err != nil {
		return err
	}
	defer logger.Close()

	watcher := config.NewWatcher(path, logger, func(cfg *config.Config) {
		cmd.Printf("%s reloaded ok\n", path)
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer watcher.Stop()

	cmd.Printf("Watching %s (ctrl-c to stop)\n", path)
	<-ctx.Done()
	return nil
}

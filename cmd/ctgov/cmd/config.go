package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ctgov/compliance/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Commands for managing ctgov configuration files.`,
}

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate configuration file",
	Long: `Validate the configuration file for errors and warnings.

Examples:
  ctgov config validate
  ctgov config validate .ctgov.yaml
  ctgov config validate --config myconfig.yaml`,
	RunE: runValidate,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the configuration that would be used, after defaults and environment overrides.`,
	RunE:  runShowConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(validateCmd)
	configCmd.AddCommand(showCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile := cfgFile
	if len(args) > 0 {
		configFile = args[0]
	}
	if configFile == "" {
		configFile = ".ctgov.yaml"
	}

	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Printf("Validating: %s\n\n", configFile)

	result := cfg.Validate()

	if len(result.Errors) > 0 {
		fmt.Printf("\033[31m✗ %d error(s):\033[0m\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("  \033[31m• %s\033[0m\n", e.Error())
		}
		fmt.Println()
	}

	if len(result.Warnings) > 0 {
		fmt.Printf("\033[33m⚠ %d warning(s):\033[0m\n", len(result.Warnings))
		for _, w := range result.Warnings {
			fmt.Printf("  \033[33m• %s\033[0m\n", w.Error())
		}
		fmt.Println()
	}

	fmt.Printf("Configuration summary:\n")
	fmt.Printf("  Server: %s (%s)\n", cfg.Server.Address, cfg.Server.Mode)
	fmt.Printf("  Database: %s\n", cfg.Database.Path)
	fmt.Printf("  Logging: %s/%s\n", cfg.Logging.Level, cfg.Logging.Format)
	fmt.Printf("  Cache: enabled=%v size=%d ttl=%s\n", cfg.Cache.Enabled, cfg.Cache.Size, cfg.Cache.TTL)
	fmt.Println()

	if result.IsValid() {
		fmt.Printf("\033[32m✓ Configuration is valid\033[0m\n")
		return nil
	}

	return fmt.Errorf("configuration has %d error(s)", len(result.Errors))
}

func runShowConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out, err := cfg.Marshal()
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	fmt.Print(string(out))
	return nil
}

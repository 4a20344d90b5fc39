package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ctgov/compliance/internal/config"
	"github.com/ctgov/compliance/internal/paths"
)

var (
	force  bool
	global bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize ctgov configuration",
	Long: `Write a starter .ctgov.yaml holding the default settings.

With --global the file is written to the XDG config directory as
config.yaml instead, where every project picks it up.

Every key can also be set through the environment with the CTGOV_ prefix,
for example CTGOV_SERVER_ADDRESS.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	initCmd.Flags().BoolVar(&global, "global", false, "write the user config in the XDG config directory")
}

func runInit(cmd *cobra.Command, args []string) error {
	configFile := ".ctgov.yaml"
	if global {
		if err := paths.EnsureConfigDir(); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		configFile = paths.ConfigFilePath()
	}

	if _, err := os.Stat(configFile); err == nil && !force {
		return fmt.Errorf("config file %s already exists", configFile)
	}

	cfg := config.Default()
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}

	body, err := cfg.Marshal()
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}

	header := "# ctgov configuration\n"
	if err := os.WriteFile(configFile, append([]byte(header), body...), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Created %s\n", configFile)
	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Edit %s to point database.path at your data\n", configFile)
	fmt.Println("  2. Run: ctgov db init")
	fmt.Println("  3. Run: ctgov db seed fixtures.yaml")
	fmt.Println("  4. Run: ctgov serve")

	return nil
}

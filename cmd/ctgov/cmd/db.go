package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ctgov/compliance/internal/db"
	"github.com/ctgov/compliance/internal/paths"
)

var backupPath string

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database management commands",
	Long: `Manage the ctgov SQLite database.

The database stores organizations, users, trials and their compliance
checks, plus login activity and password reset tokens.

Examples:
  ctgov db init                    # Initialize database
  ctgov db status                  # Show database status
  ctgov db seed fixtures.yaml      # Load trials from a YAML fixture
  ctgov db backup --output b.db    # Backup database
  ctgov db restore --input b.db    # Restore from backup
  ctgov db export > data.json      # Export to JSON
  ctgov db import < data.json      # Import from JSON`,
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the database",
	Long:  `Creates the ctgov database with the required schema and views.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		fmt.Printf("✓ Database initialized at: %s\n", database.Path())
		return nil
	},
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database status and statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		stats, err := database.GetStats()
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		lastCheck := "Never"
		if stats.LastCheck != "" {
			lastCheck = stats.LastCheck
		}

		fmt.Println("╔════════════════════════════════════════════════════════════╗")
		fmt.Println("║                    DATABASE STATUS                         ║")
		fmt.Println("╠════════════════════════════════════════════════════════════╣")
		fmt.Printf("║  Path:           %-40s  ║\n", truncateStr(stats.Path, 40))
		fmt.Printf("║  Size:           %-40s  ║\n", formatBytes(stats.Size))
		fmt.Printf("║  Schema Version: %-40d  ║\n", stats.SchemaVersion)
		fmt.Println("╠════════════════════════════════════════════════════════════╣")
		fmt.Printf("║  Organizations:  %-40d  ║\n", stats.Organizations)
		fmt.Printf("║  Users:          %-40d  ║\n", stats.Users)
		fmt.Printf("║  Trials:         %-40d  ║\n", stats.Trials)
		fmt.Printf("║  Checked:        %-40d  ║\n", stats.ComplianceChecks)
		fmt.Printf("║  Pending:        %-40d  ║\n", stats.PendingTrials)
		fmt.Printf("║  Logins:         %-40d  ║\n", stats.Logins)
		fmt.Println("╠════════════════════════════════════════════════════════════╣")
		fmt.Printf("║  Last Check:     %-40s  ║\n", truncateStr(lastCheck, 40))
		fmt.Println("╚════════════════════════════════════════════════════════════╝")

		return nil
	},
}

var dbPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the database file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Println(cfg.Database.Path)
		return nil
	},
}

var dbBackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Backup the database",
	Long: `Creates a backup copy of the database.

If no output path is specified, creates a timestamped backup in the
ctgov data directory under backups/.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		dest := backupPath
		if dest == "" {
			if err := paths.EnsureBackupDir(); err != nil {
				return fmt.Errorf("failed to create backup directory: %w", err)
			}
			timestamp := time.Now().Format("20060102-150405")
			dest = filepath.Join(paths.BackupDir(), fmt.Sprintf("ctgov-%s.db", timestamp))
		}

		if err := database.Backup(dest); err != nil {
			return fmt.Errorf("failed to backup database: %w", err)
		}

		info, err := os.Stat(dest)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Database backed up to: %s (%s)\n", dest, formatBytes(info.Size()))
		return nil
	},
}

var dbRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore database from backup",
	Long:  `Restores the database from a backup file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if backupPath == "" {
			return fmt.Errorf("backup path required: use --input")
		}
		if _, err := os.Stat(backupPath); os.IsNotExist(err) {
			return fmt.Errorf("backup file not found: %s", backupPath)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database, err := db.Open(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}

		if err := database.Restore(backupPath); err != nil {
			return fmt.Errorf("failed to restore database: %w", err)
		}

		fmt.Printf("✓ Database restored from: %s\n", backupPath)
		return nil
	},
}

var dbExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export database to JSON",
	Long: `Exports all database data to JSON format.

Output goes to stdout by default. Redirect to a file:
  ctgov db export > backup.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		if err := database.Export(cmd.Context(), os.Stdout); err != nil {
			return fmt.Errorf("failed to export database: %w", err)
		}
		return nil
	},
}

var dbImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import database from JSON",
	Long: `Imports data from JSON format.

Input comes from stdin by default:
  ctgov db import < backup.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		if err := database.Import(cmd.Context(), os.Stdin); err != nil {
			return fmt.Errorf("failed to import database: %w", err)
		}

		fmt.Fprintln(os.Stderr, "✓ Database imported successfully")
		return nil
	},
}

var dbSeedCmd = &cobra.Command{
	Use:   "seed <fixture.yaml>",
	Short: "Load organizations, users and trials from a YAML fixture",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open fixture: %w", err)
		}
		defer f.Close()

		fixture, err := db.LoadFixture(f)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		result, err := database.Seed(cmd.Context(), fixture)
		if err != nil {
			return fmt.Errorf("failed to seed database: %w", err)
		}

		fmt.Printf("✓ Seeded %d organizations, %d users, %d trials, %d compliance checks, %d logins\n",
			result.Organizations, result.Users, result.Trials, result.Checks, result.Logins)
		return nil
	},
}

var dbResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the database (destroys all data)",
	Long:  `Removes and reinitializes the database. All data will be lost!`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path := cfg.Database.Path

		for _, p := range []string{path, path + "-wal", path + "-shm"} {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to remove %s: %w", p, err)
			}
		}

		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		fmt.Printf("✓ Database reset at: %s\n", path)
		return nil
	},
}

var dbOptimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Optimize database performance",
	Long: `Runs VACUUM and ANALYZE to optimize database performance.

VACUUM reclaims unused space and defragments the database file.
ANALYZE updates statistics used by the query planner.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		before, err := database.GetStats()
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		fmt.Println("Optimizing database...")
		fmt.Println("  Running VACUUM and ANALYZE...")
		if err := database.Optimize(); err != nil {
			return fmt.Errorf("optimize failed: %w", err)
		}

		after, err := database.GetStats()
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		if saved := before.Size - after.Size; saved > 0 {
			fmt.Printf("✓ Optimization complete. Reclaimed %s\n", formatBytes(saved))
		} else {
			fmt.Println("✓ Optimization complete. Database was already optimized.")
		}
		fmt.Printf("  Size: %s\n", formatBytes(after.Size))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)

	dbCmd.AddCommand(dbInitCmd)
	dbCmd.AddCommand(dbStatusCmd)
	dbCmd.AddCommand(dbPathCmd)
	dbCmd.AddCommand(dbBackupCmd)
	dbCmd.AddCommand(dbRestoreCmd)
	dbCmd.AddCommand(dbExportCmd)
	dbCmd.AddCommand(dbImportCmd)
	dbCmd.AddCommand(dbSeedCmd)
	dbCmd.AddCommand(dbResetCmd)
	dbCmd.AddCommand(dbOptimizeCmd)

	dbBackupCmd.Flags().StringVar(&backupPath, "output", "", "backup output path")
	dbRestoreCmd.Flags().StringVar(&backupPath, "input", "", "backup input path")
}

func truncateStr(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen+3:]
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

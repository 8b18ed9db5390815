package main

import (
	"fmt"

	"github.com/hairizuan-noorazman/repair-desk/database"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	migrationsPath string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database migration commands",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(func(cfg *Config, db *gorm.DB) error {
			// SQLite installs have no migration files
			if cfg.Database.Driver == database.DriverSQLite {
				if err := database.AutoMigrate(db); err != nil {
					return fmt.Errorf("failed to migrate sqlite schema: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Schema migrated successfully")
				return nil
			}

			sqlDB, err := db.DB()
			if err != nil {
				return fmt.Errorf("failed to get database instance: %w", err)
			}
			if err := database.RunMigrations(sqlDB, migrationsPath); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied successfully")
			return nil
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Rollback the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(func(cfg *Config, db *gorm.DB) error {
			if cfg.Database.Driver == database.DriverSQLite {
				return fmt.Errorf("rollback is not supported for sqlite")
			}

			sqlDB, err := db.DB()
			if err != nil {
				return fmt.Errorf("failed to get database instance: %w", err)
			}
			if err := database.RollbackMigration(sqlDB, migrationsPath); err != nil {
				return fmt.Errorf("failed to rollback migration: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Migration rolled back successfully")
			return nil
		})
	},
}

// withDatabase loads config, connects, runs fn and closes the connection.
func withDatabase(fn func(cfg *Config, db *gorm.DB) error) error {
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.Connect(cfg.databaseConfig())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	defer sqlDB.Close()

	return fn(cfg, db)
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)

	migrateCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
	migrateCmd.PersistentFlags().StringVarP(&migrationsPath, "path", "p", "database/migrations", "migrations directory path")

	rootCmd.AddCommand(migrateCmd)
}

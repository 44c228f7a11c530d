package main

import (
	"fmt"
	"os"

	"crm-contacts/config"
	"crm-contacts/internal/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

// rootCmd is the crm-contacts CLI entry point
var rootCmd = &cobra.Command{
	Use:   "crm-contacts",
	Short: "CRM contacts API and tooling",
	Long: `Serve the contacts API, or run maintenance tasks against its database.

Available subcommands:
  serve   - Run the HTTP API
  migrate - Apply or roll back database migrations
  seed    - Fill a tenant with fake contacts and groups
  view    - Print a filtered, sorted contacts table`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./config.yaml)")
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, viewCmd)
}

// @title CRM Contacts API
// @version 1.0
// @description Contacts, groups and table views of a multi-tenant CRM
// @host localhost:8081
// @BasePath /api/v1
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap loads configuration and installs the global logger.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	utils.SetLogger(logger)
	return cfg, logger, nil
}

package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/keepithuman/netconfig-automation/internal/app"
	neterrors "github.com/keepithuman/netconfig-automation/internal/errors"
	"github.com/keepithuman/netconfig-automation/internal/logger"
	"github.com/keepithuman/netconfig-automation/internal/output"
	"github.com/keepithuman/netconfig-automation/pkg/config"
)

var (
	cfgFile string
	cfg     *config.Config
	log     logger.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "netconfig",
	Short: "Network device configuration automation",
	Long: `netconfig deploys, backs up, rolls back and audits the
configuration of a fleet of network devices over SSH.

Templates are rendered per device, pushed concurrently with a bounded
worker pool, and every applied configuration is snapshotted so any
deployment can be rolled back later.

COMMON OPERATIONS:
  netconfig deploy -t base_config -d edge-01,edge-02
  netconfig backup
  netconfig compliance
  netconfig rollback <config-id>
  netconfig devices list`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion, _ := cmd.Flags().GetBool("version"); showVersion {
			runVersion(cmd, []string{})
			return nil
		}
		return cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

// Execute runs the CLI. Errors exit with a category-specific code so
// scripts can tell resolution failures from transport failures.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(neterrors.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.netconfig/config.yaml)")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "output format (table, json, yaml)")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("version", false, "show version information")

	viper.BindPFlag("output.format", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("output.no_color", rootCmd.PersistentFlags().Lookup("no-color"))
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(newDeployCommand())
	rootCmd.AddCommand(newBackupCommand())
	rootCmd.AddCommand(newRollbackCommand())
	rootCmd.AddCommand(newComplianceCommand())
	rootCmd.AddCommand(newDevicesCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newVersionCommand())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.ExpandPaths(); err != nil {
		return fmt.Errorf("failed to expand config paths: %w", err)
	}

	log = logger.NewLogrus(cfg.Logging.Level, cfg.Logging.Format)
	return nil
}

// newApp assembles the runtime from the loaded configuration.
func newApp(ctx context.Context) (*app.App, error) {
	return app.New(ctx, cfg, log)
}

// newRenderer builds the result renderer from the output settings.
func newRenderer() *output.Renderer {
	format, err := output.ParseOutputFormat(cfg.Output.Format)
	if err != nil {
		format = output.FormatTable
	}
	return output.NewRenderer(output.Config{
		DefaultFormat: format,
		EnableColors:  !cfg.Output.NoColor,
		TableHeaders:  true,
	})
}

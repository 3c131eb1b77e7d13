package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// starterTemplate gives a fresh install something deployable.
const starterTemplate = `hostname {{.hostname}}
!
ip ssh version 2
no ip http server
!
banner login ^Authorized access only^
!
ntp server {{.ntp_server}}
!
end
`

func newInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "init",
		Short:        "Initialize storage, template and backup directories",
		SilenceUsage: true,
		Long: `Init prepares a fresh installation: it creates the storage schema,
the template directory (with a starter template when empty) and the
backup directory. Running it again is harmless.`,
		RunE: runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	for _, dir := range []string{cfg.Templates.Dir, cfg.Backup.OutputDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	starter := filepath.Join(cfg.Templates.Dir, "base_config.txt")
	if _, err := os.Stat(starter); os.IsNotExist(err) {
		if err := os.WriteFile(starter, []byte(starterTemplate), 0o644); err != nil {
			return fmt.Errorf("write starter template: %w", err)
		}
		fmt.Printf("Created starter template %s\n", starter)
	}

	fmt.Printf("Storage backend: %s\n", cfg.Storage.Backend)
	fmt.Printf("Template directory: %s\n", cfg.Templates.Dir)
	fmt.Printf("Backup directory: %s\n", cfg.Backup.OutputDir)
	newRenderer().DisplaySuccess("initialization complete")
	return nil
}

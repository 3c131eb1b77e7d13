package commands

import (
	"github.com/spf13/cobra"

	neterrors "github.com/keepithuman/netconfig-automation/internal/errors"
	"github.com/keepithuman/netconfig-automation/internal/orchestrator"
	"github.com/keepithuman/netconfig-automation/internal/output"
)

func newBackupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "backup",
		Short:        "Back up running device configurations",
		SilenceUsage: true,
		Long: `Backup captures the running configuration of each target device,
stores it as a snapshot and mirrors it to a timestamped file in the
backup directory. Snapshots taken here can be restored with rollback.`,
		Example: `  # Back up the whole fleet
  netconfig backup

  # Back up two devices into a custom directory
  netconfig backup --devices edge-01,edge-02 --output-dir ./pre-change`,
		RunE: runBackup,
	}

	cmd.Flags().StringSliceP("devices", "d", nil, `device names to back up (default "all")`)
	cmd.Flags().String("output-dir", "", "directory to store backup files (defaults to the configured one)")

	return cmd
}

func runBackup(cmd *cobra.Command, args []string) error {
	devices, _ := cmd.Flags().GetStringSlice("devices")
	outputDir, _ := cmd.Flags().GetString("output-dir")

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	spinner := output.NewSpinner("Backing up configurations...", cfg.Output.NoColor)
	spinner.Start()

	batch, err := a.Orch.Backup(cmd.Context(), orchestrator.BackupRequest{
		Devices:   devices,
		OutputDir: outputDir,
	})
	spinner.Stop()
	if err != nil {
		return err
	}

	if err := newRenderer().RenderBatchResult(batch); err != nil {
		return err
	}
	if !batch.Success {
		return neterrors.New(neterrors.ErrorTypeTransport, "backup", "no device could be backed up")
	}
	return nil
}

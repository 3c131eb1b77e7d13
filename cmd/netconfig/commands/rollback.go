package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	neterrors "github.com/keepithuman/netconfig-automation/internal/errors"
	"github.com/keepithuman/netconfig-automation/internal/orchestrator"
	"github.com/keepithuman/netconfig-automation/internal/output"
)

func newRollbackCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "rollback CONFIG_ID",
		Short:        "Restore a stored configuration snapshot",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		Long: `Rollback pushes a stored snapshot's configuration back onto devices.

Without --devices the targets are derived from the deployment the
snapshot belongs to, so the exact fleet that received a bad change
gets the restore. Each device is backed up again before the push.`,
		Example: `  # Roll back every device of the snapshot's deployment
  netconfig rollback 4f1c22d8-55ab-4c6e-9a2f-3d8e1b7a9c10

  # Roll back a single device without the confirmation prompt
  netconfig rollback 4f1c22d8-55ab-4c6e-9a2f-3d8e1b7a9c10 --devices edge-01 --confirm`,
		RunE: runRollback,
	}

	cmd.Flags().StringSliceP("devices", "d", nil, "restrict the rollback to these device names")
	cmd.Flags().Bool("confirm", false, "skip the confirmation prompt")

	return cmd
}

func runRollback(cmd *cobra.Command, args []string) error {
	configID := args[0]
	devices, _ := cmd.Flags().GetStringSlice("devices")
	confirmed, _ := cmd.Flags().GetBool("confirm")

	if !confirmed {
		fmt.Printf("Roll back to configuration %s? [y/N]: ", configID)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			fmt.Println("Rollback cancelled.")
			return nil
		}
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	spinner := output.NewSpinner("Rolling back configuration...", cfg.Output.NoColor)
	spinner.Start()

	batch, err := a.Orch.Rollback(cmd.Context(), orchestrator.RollbackRequest{
		ConfigID: configID,
		Devices:  devices,
	})
	spinner.Stop()
	if err != nil {
		return err
	}

	if err := newRenderer().RenderBatchResult(batch); err != nil {
		return err
	}
	if !batch.Success {
		return neterrors.New(neterrors.ErrorTypeTransport, "rollback", "no device took the restored configuration")
	}
	return nil
}

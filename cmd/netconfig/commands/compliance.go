package commands

import (
	"github.com/spf13/cobra"

	"github.com/keepithuman/netconfig-automation/internal/orchestrator"
	"github.com/keepithuman/netconfig-automation/internal/output"
)

func newComplianceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "compliance",
		Short:        "Audit device configurations against the policy set",
		SilenceUsage: true,
		Long: `Compliance fetches the running configuration of each target device
and evaluates it against the active policy set. Policies come from the
configured policy file, or the built-in baseline (SSHv2 enabled, no
telnet, login banner) when no file exists.

A device that violates policies still audits successfully; the
violations and the per-device score are part of the report. Only
unreachable devices count as failures.`,
		Example: `  # Audit the whole fleet
  netconfig compliance

  # Audit one device
  netconfig compliance --device edge-01

  # Machine-readable report
  netconfig compliance -o json`,
		RunE: runCompliance,
	}

	cmd.Flags().StringSlice("device", nil, "device names to audit (default all)")

	return cmd
}

func runCompliance(cmd *cobra.Command, args []string) error {
	devices, _ := cmd.Flags().GetStringSlice("device")

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	spinner := output.NewSpinner("Checking compliance...", cfg.Output.NoColor)
	spinner.Start()

	batch, err := a.Orch.CheckCompliance(cmd.Context(), orchestrator.ComplianceRequest{
		Devices: devices,
	})
	spinner.Stop()
	if err != nil {
		return err
	}

	return newRenderer().RenderBatchResult(batch)
}

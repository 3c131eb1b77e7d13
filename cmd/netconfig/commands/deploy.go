package commands

import (
	"encoding/json"

	"github.com/spf13/cobra"

	neterrors "github.com/keepithuman/netconfig-automation/internal/errors"
	"github.com/keepithuman/netconfig-automation/internal/orchestrator"
	"github.com/keepithuman/netconfig-automation/internal/output"
)

func newDeployCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "deploy",
		Short:        "Deploy a configuration template to devices",
		SilenceUsage: true,
		Long: `Deploy renders a configuration template once per target device and
pushes the result over SSH. Devices are worked on concurrently with a
bounded worker pool; one unreachable device never stops the rest.

Before anything is pushed the current running configuration of each
device is snapshotted, so the deployment can be rolled back later with
the rollback command.`,
		Example: `  # Deploy a template to two devices
  netconfig deploy --template base_config --devices edge-01,edge-02

  # Deploy to the whole fleet with template variables
  netconfig deploy -t ntp_update -d all --variables '{"ntp_server":"10.0.0.123"}'

  # Render and validate without contacting any device
  netconfig deploy -t base_config -d edge-01 --dry-run`,
		RunE: runDeploy,
	}

	cmd.Flags().StringP("template", "t", "", "configuration template to deploy (required)")
	cmd.Flags().StringSliceP("devices", "d", nil, `target device names, or "all" (required)`)
	cmd.Flags().String("variables", "", "JSON object of template variables")
	cmd.Flags().Bool("dry-run", false, "show what would be deployed without applying")
	cmd.MarkFlagRequired("template")
	cmd.MarkFlagRequired("devices")

	return cmd
}

// parseVariables decodes the --variables flag, a JSON object mapping
// variable names to string values.
func parseVariables(raw string) (map[string]string, error) {
	variables := map[string]string{}
	if raw == "" {
		return variables, nil
	}
	if err := json.Unmarshal([]byte(raw), &variables); err != nil {
		return nil, neterrors.New(neterrors.ErrorTypeValidation, "deploy",
			"variables must be a JSON object of strings").WithCause(err)
	}
	return variables, nil
}

func runDeploy(cmd *cobra.Command, args []string) error {
	templateName, _ := cmd.Flags().GetString("template")
	devices, _ := cmd.Flags().GetStringSlice("devices")
	rawVariables, _ := cmd.Flags().GetString("variables")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	variables, err := parseVariables(rawVariables)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	title := "Deploying configuration..."
	if dryRun {
		title = "Validating configuration..."
	}
	spinner := output.NewSpinner(title, cfg.Output.NoColor)
	spinner.Start()

	batch, err := a.Orch.Deploy(cmd.Context(), orchestrator.DeployRequest{
		Template:  templateName,
		Devices:   devices,
		Variables: variables,
		DryRun:    dryRun,
	})
	spinner.Stop()
	if err != nil {
		return err
	}

	if err := newRenderer().RenderBatchResult(batch); err != nil {
		return err
	}
	if !batch.Success {
		return neterrors.New(neterrors.ErrorTypeTransport, "deploy", "no device took the configuration")
	}
	return nil
}

package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "history",
		Short:        "Browse deployment history and snapshots",
		SilenceUsage: true,
		Long: `History lists past deployments and rollbacks, newest first. Each
record carries the per-device outcomes and the snapshot ids needed to
roll a deployment back.`,
		Example: `  # Last 20 deployments
  netconfig history

  # Full detail of one deployment
  netconfig history show 4f1c22d8-55ab-4c6e-9a2f-3d8e1b7a9c10

  # Snapshots stored for a device
  netconfig history snapshots edge-01`,
		RunE: runHistoryList,
	}

	cmd.AddCommand(newHistoryShowCommand())
	cmd.AddCommand(newHistorySnapshotsCommand())

	cmd.Flags().IntP("limit", "l", 20, "limit number of records shown")

	return cmd
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	if limit < 1 {
		limit = 20
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.Store.ListDeploymentRecords(cmd.Context(), limit)
	if err != nil {
		return err
	}
	return newRenderer().RenderHistoryList(records)
}

func newHistoryShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "show DEPLOYMENT_ID",
		Short:        "Show the full record of one deployment",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			record, err := a.Store.GetDeploymentRecord(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(record, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}
}

func newHistorySnapshotsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "snapshots DEVICE",
		Short:        "List stored configuration snapshots for a device",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			if limit < 1 {
				limit = 20
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			device, err := a.Inventory.GetByName(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			snapshots, err := a.Store.ListSnapshotsByDevice(cmd.Context(), device.ID, limit)
			if err != nil {
				return err
			}
			return newRenderer().RenderSnapshotList(snapshots)
		},
	}

	cmd.Flags().IntP("limit", "l", 20, "limit number of snapshots shown")

	return cmd
}

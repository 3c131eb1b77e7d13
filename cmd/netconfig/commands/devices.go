package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/keepithuman/netconfig-automation/pkg/types"
)

func newDevicesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "devices",
		Short:        "Manage the device inventory",
		SilenceUsage: true,
		Long: `Devices lists and edits the inventory of managed network devices.
Every fleet operation resolves its targets against this inventory.`,
		Example: `  # List registered devices
  netconfig devices list

  # Register a device
  netconfig devices add --name edge-01 --host 10.0.0.1 --type cisco_ios --username ops

  # Remove a device by name
  netconfig devices remove edge-01`,
		RunE: runDevicesList,
	}

	cmd.AddCommand(newDevicesListCommand())
	cmd.AddCommand(newDevicesAddCommand())
	cmd.AddCommand(newDevicesRemoveCommand())

	return cmd
}

func newDevicesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "list",
		Short:        "List registered devices",
		SilenceUsage: true,
		RunE:         runDevicesList,
	}
}

func runDevicesList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	devices, err := a.Inventory.List(cmd.Context())
	if err != nil {
		return err
	}
	return newRenderer().RenderDeviceList(devices)
}

func newDevicesAddCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "add",
		Short:        "Register a device in the inventory",
		SilenceUsage: true,
		Example: `  netconfig devices add --name edge-01 --host 10.0.0.1 --type cisco_ios \
    --username ops --password s3cret`,
		RunE: runDevicesAdd,
	}

	cmd.Flags().String("name", "", "unique device name (required)")
	cmd.Flags().String("host", "", "management IP or hostname (required)")
	cmd.Flags().String("type", "", "device dialect: cisco_ios, cisco_nxos, juniper_junos, arista_eos (required)")
	cmd.Flags().Int("port", 0, "SSH port (default 22)")
	cmd.Flags().String("username", "", "SSH username")
	cmd.Flags().String("password", "", "SSH password")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("host")
	cmd.MarkFlagRequired("type")

	return cmd
}

func runDevicesAdd(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	host, _ := cmd.Flags().GetString("host")
	deviceType, _ := cmd.Flags().GetString("type")
	port, _ := cmd.Flags().GetInt("port")
	username, _ := cmd.Flags().GetString("username")
	password, _ := cmd.Flags().GetString("password")

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	device := &types.Device{
		Name:       name,
		Host:       host,
		DeviceType: deviceType,
		Port:       port,
		Username:   username,
		Password:   password,
	}
	if err := a.Inventory.Add(cmd.Context(), device); err != nil {
		return err
	}

	newRenderer().DisplaySuccess(fmt.Sprintf("device %s registered (%s)", device.Name, device.ID))
	return nil
}

func newDevicesRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "remove NAME",
		Short:        "Remove a device from the inventory",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE:         runDevicesRemove,
	}
}

func runDevicesRemove(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Inventory.RemoveByName(cmd.Context(), args[0]); err != nil {
		return err
	}

	newRenderer().DisplaySuccess(fmt.Sprintf("device %s removed", args[0]))
	return nil
}

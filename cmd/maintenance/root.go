package maintenance

import (
	"github.com/ferrokv/ferrokv/cmd/util"
	"github.com/ferrokv/ferrokv/lib/ferrostore"
	"github.com/ferrokv/ferrokv/rpc/client"
	"github.com/spf13/cobra"
)

var (
	rpcStore ferrostore.Store

	// MaintenanceCommands represents the maintenance command group
	MaintenanceCommands = &cobra.Command{
		Use:               "maintenance",
		Short:             "Perform maintenance operations (defragment, backup, restore)",
		PersistentPreRunE: setupMaintenanceClient,
	}
)

func init() {
	cobra.OnInitialize(util.InitClientConfig)

	util.SetupRPCClientFlags(MaintenanceCommands)

	MaintenanceCommands.AddCommand(defragmentCmd)
	MaintenanceCommands.AddCommand(backupCmd)
	MaintenanceCommands.AddCommand(restoreCmd)
}

func setupMaintenanceClient(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	config := util.GetClientConfig()
	deviceId := util.GetDeviceID()

	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	t, err := util.GetTransport()
	if err != nil {
		return err
	}

	rpcStore, err = client.NewRPCStore(
		deviceId,
		*config,
		t,
		s,
	)

	return err
}

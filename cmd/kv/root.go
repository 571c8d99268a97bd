package kv

import (
	"github.com/ferrokv/ferrokv/cmd/util"
	"github.com/ferrokv/ferrokv/lib/ferrostore"
	"github.com/ferrokv/ferrokv/rpc/client"
	"github.com/spf13/cobra"
)

var (
	rpcStore ferrostore.Store

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:               "kv",
		Short:             "Perform data operations (write, read, delete, exists, length, flush)",
		PersistentPreRunE: setupKVClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common RPC flags to the KV command
	util.SetupRPCClientFlags(KeyValueCommands)

	// Add subcommands
	KeyValueCommands.AddCommand(writeCmd)
	KeyValueCommands.AddCommand(readCmd)
	KeyValueCommands.AddCommand(deleteCmd)
	KeyValueCommands.AddCommand(existsCmd)
	KeyValueCommands.AddCommand(lengthCmd)
	KeyValueCommands.AddCommand(flushCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupKVClient initializes the RPC store client
func setupKVClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Get client configuration components
	config := util.GetClientConfig()
	deviceId := util.GetDeviceID()

	// Get serializer and transport
	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	t, err := util.GetTransport()
	if err != nil {
		return err
	}

	// Create the KV store client
	rpcStore, err = client.NewRPCStore(
		deviceId,
		*config,
		t,
		s,
	)

	return err
}

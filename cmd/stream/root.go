package stream

import (
	"github.com/ferrokv/ferrokv/cmd/util"
	"github.com/ferrokv/ferrokv/lib/ferrostore"
	"github.com/ferrokv/ferrokv/rpc/client"
	"github.com/spf13/cobra"
)

var (
	rpcStore ferrostore.Store

	// StreamCommands represents the chunked stream command group
	StreamCommands = &cobra.Command{
		Use:               "stream",
		Short:             "Perform chunked stream operations over stdin/stdout (write, read)",
		PersistentPreRunE: setupStreamClient,
	}
)

func init() {
	cobra.OnInitialize(util.InitClientConfig)

	util.SetupRPCClientFlags(StreamCommands)

	key := "chunk-size"
	StreamCommands.PersistentFlags().Int(key, 4096, util.WrapString("Size in bytes of each chunk read from stdin or written to stdout"))

	StreamCommands.AddCommand(writeCmd)
	StreamCommands.AddCommand(readCmd)
}

func setupStreamClient(cmd *cobra.Command, _ []string) error {
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

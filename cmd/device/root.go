package device

import (
	"fmt"

	"github.com/ferrokv/ferrokv/cmd/util"
	"github.com/ferrokv/ferrokv/lib/ferrostore"
	"github.com/ferrokv/ferrokv/lib/ferrostore/engines/nvm"
	"github.com/ferrokv/ferrokv/lib/port"
	"github.com/ferrokv/ferrokv/lib/schema"
	"github.com/spf13/cobra"
)

// DeviceCommands operates directly on a local device path rather than
// through the RPC client: device lifecycle (format/init) is owned by
// whichever process opens the device first, and an RPC client explicitly
// refuses to run Init() remotely (the daemon already owns that). These
// commands are for operating on a device that isn't currently served by a
// daemon, or for preparing one before `ferrokv serve` is started.
var DeviceCommands = &cobra.Command{
	Use:   "device",
	Short: "Perform device lifecycle operations directly on a local device (format, init, stats, verify)",
}

func init() {
	cobra.OnInitialize(util.InitClientConfig)

	key := "path"
	DeviceCommands.PersistentFlags().String(key, ":memory:", util.WrapString("Path to the device file, or :memory: for an in-memory device"))
	key = "size"
	DeviceCommands.PersistentFlags().Uint32(key, 1<<20, util.WrapString("Size of the device in bytes"))
	key = "schema"
	DeviceCommands.PersistentFlags().String(key, "", util.WrapString("Path to the tag schema YAML file"))
	key = "migrate"
	DeviceCommands.PersistentFlags().Bool(key, false, util.WrapString("Run the lazy migrator over every live tag on open"))

	DeviceCommands.AddCommand(formatCmd)
	DeviceCommands.AddCommand(initCmd)
	DeviceCommands.AddCommand(statsCmd)
	DeviceCommands.AddCommand(verifyCmd)
}

// openLocalEngine opens the device named by the --path/--size/--schema/
// --migrate flags and runs it through Init, following the same sequence
// as rpc/server's openDevice. It returns the concrete *nvm.Engine, not
// just a ferrostore.Store, so callers can read MigrationStats().
func openLocalEngine(cmd *cobra.Command) (*nvm.Engine, ferrostore.State, error) {
	path, _ := cmd.Flags().GetString("path")
	size, _ := cmd.Flags().GetUint32("size")
	schemaPath, _ := cmd.Flags().GetString("schema")
	migrate, _ := cmd.Flags().GetBool("migrate")

	var p port.Port
	var err error
	if path == ":memory:" {
		p = port.NewMemPort(int(size))
	} else {
		p, err = port.NewFilePort(path, int(size))
		if err != nil {
			return nil, ferrostore.StateError, fmt.Errorf("failed to open device at %s: %w", path, err)
		}
	}

	var reg schema.Registry
	if schemaPath != "" {
		reg, err = schema.LoadYAML(schemaPath)
		if err != nil {
			return nil, ferrostore.StateError, fmt.Errorf("failed to load schema %s: %w", schemaPath, err)
		}
	}

	opts := nvm.DefaultOptions(size)
	opts.AutoMigrateOnBoot = migrate
	engine, err := nvm.NewEngine(opts, p, port.SystemClock{}, reg)
	if err != nil {
		return nil, ferrostore.StateError, fmt.Errorf("failed to create engine: %w", err)
	}

	state, err := engine.Init()
	if err != nil {
		return nil, ferrostore.StateError, fmt.Errorf("failed to init device: %w", err)
	}

	return engine, state, nil
}

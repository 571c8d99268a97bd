package maintenance

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	defragmentCmd = &cobra.Command{
		Use:   "defragment",
		Short: "Compacts free space fragments on the device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcStore.Defragment(); err != nil {
				return err
			}
			fmt.Println("defragmented successfully")
			return nil
		},
	}
	backupCmd = &cobra.Command{
		Use:   "backup",
		Short: "Writes a full backup of the device's management area",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcStore.BackupAll(); err != nil {
				return err
			}
			fmt.Println("backed up successfully")
			return nil
		},
	}
	restoreCmd = &cobra.Command{
		Use:   "restore",
		Short: "Restores the device's management area from its backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcStore.RestoreFromBackup(); err != nil {
				return err
			}
			fmt.Println("restored successfully")
			return nil
		},
	}
)

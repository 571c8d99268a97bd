package device

import (
	"fmt"
	"strconv"

	"github.com/ferrokv/ferrokv/lib/ferrostore"
	"github.com/spf13/cobra"
)

var (
	formatCmd = &cobra.Command{
		Use:   "format [magic]",
		Short: "Formats the device to a fresh, empty state",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var magic uint64
			if len(args) == 1 {
				var err error
				magic, err = parseUint(args[0])
				if err != nil {
					return err
				}
			}

			engine, _, err := openLocalEngine(cmd)
			if err != nil {
				return err
			}
			defer engine.Deinit()

			if err := engine.Format(uint32(magic)); err != nil {
				return err
			}
			fmt.Println("device formatted successfully")
			return nil
		},
	}
	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Loads the device's management area and reports its state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, state, err := openLocalEngine(cmd)
			if err != nil {
				return err
			}
			defer engine.Deinit()

			fmt.Printf("state=%s\n", state)
			if state == ferrostore.StateFirstBoot {
				fmt.Println("device is unformatted; run 'ferrokv device format' to initialize it")
			}
			if migrate, _ := cmd.Flags().GetBool("migrate"); migrate {
				m, f := engine.MigrationStats()
				fmt.Printf("migration: migrated=%d failed=%d\n", m, f)
			}
			return nil
		},
	}
	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Prints space and fragmentation statistics for the device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, err := openLocalEngine(cmd)
			if err != nil {
				return err
			}
			defer engine.Deinit()

			stats := engine.Statistics()
			fmt.Printf("tags:               %d\n", stats.TagCount)
			fmt.Printf("total writes:       %d\n", stats.TotalWrites)
			fmt.Printf("free space:         %d bytes\n", stats.FreeSpace)
			fmt.Printf("used space:         %d bytes\n", stats.UsedSpace)
			fmt.Printf("fragment count:     %d\n", stats.FragmentCount)
			fmt.Printf("fragment size:      %d bytes\n", stats.FragmentSize)
			fmt.Printf("fragmentation:      %.2f%%\n", stats.FragmentationPercent)
			fmt.Printf("data region size:   %d bytes\n", stats.DataRegionSize)
			fmt.Printf("next free address:  %d\n", stats.NextFreeAddr)
			fmt.Printf("write latency:      p50=%.2fms p99=%.2fms\n", stats.WriteP50Ms, stats.WriteP99Ms)
			fmt.Printf("read latency:       p50=%.2fms p99=%.2fms\n", stats.ReadP50Ms, stats.ReadP99Ms)
			fmt.Printf("defragment latency: mean=%.2fms\n", stats.DefragmentMeanMs)
			fmt.Printf("payload size:       avg=%d p99=%d bytes\n", stats.PayloadAvgBytes, stats.PayloadP99Bytes)
			return nil
		},
	}
	verifyCmd = &cobra.Command{
		Use:   "verify",
		Short: "Verifies the CRC of every live tag and reports corrupted ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, err := openLocalEngine(cmd)
			if err != nil {
				return err
			}
			defer engine.Deinit()

			corrupted, err := engine.VerifyAll()
			if len(corrupted) > 0 {
				fmt.Printf("%d corrupted tag(s): %v\n", len(corrupted), corrupted)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Println("all tags verified ok")
			return nil
		},
	}
)

func parseUint(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid magic %q: %w", s, err)
	}
	return v, nil
}

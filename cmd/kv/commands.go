package kv

import (
	"fmt"
	"github.com/spf13/cobra"
	"strconv"
)

// parseTag parses a command-line tag argument as either decimal or
// 0x-prefixed hexadecimal, matching the §3 tag domain (uint16).
func parseTag(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid tag %q: %w", s, err)
	}
	return uint16(v), nil
}

var (
	writeCmd = &cobra.Command{
		Use:   "write [tag] [value]",
		Short: "Writes the value for a tag",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tag, err := parseTag(args[0])
			if err != nil {
				return err
			}
			if err := rpcStore.Write(tag, []byte(args[1])); err != nil {
				return err
			}
			fmt.Println("written successfully")
			return nil
		},
	}
	readCmd = &cobra.Command{
		Use:   "read [tag]",
		Short: "Reads the value for a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tag, err := parseTag(args[0])
			if err != nil {
				return err
			}

			length, err := rpcStore.Length(tag)
			if err != nil {
				return err
			}

			buf := make([]byte, length)
			n, err := rpcStore.Read(tag, buf)
			if err != nil {
				return err
			}

			fmt.Printf("tag=%s, length=%d, value=%s\n", args[0], n, buf[:n])
			return nil
		},
	}
	deleteCmd = &cobra.Command{
		Use:   "delete [tag]",
		Short: "Deletes a tag's value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tag, err := parseTag(args[0])
			if err != nil {
				return err
			}
			if err := rpcStore.Delete(tag); err != nil {
				return err
			}
			fmt.Println("deleted successfully")
			return nil
		},
	}
	existsCmd = &cobra.Command{
		Use:   "exists [tag]",
		Short: "Checks whether a tag is present",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tag, err := parseTag(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("tag=%s, exists=%t\n", args[0], rpcStore.Exists(tag))
			return nil
		},
	}
	lengthCmd = &cobra.Command{
		Use:   "length [tag]",
		Short: "Reports the stored length of a tag's value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tag, err := parseTag(args[0])
			if err != nil {
				return err
			}
			length, err := rpcStore.Length(tag)
			if err != nil {
				return err
			}
			fmt.Printf("tag=%s, length=%d\n", args[0], length)
			return nil
		},
	}
	flushCmd = &cobra.Command{
		Use:   "flush",
		Short: "Flushes pending writes to the device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcStore.Flush(); err != nil {
				return err
			}
			fmt.Println("flushed successfully")
			return nil
		},
	}
)
